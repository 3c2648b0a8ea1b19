package sim_test

import (
	"bytes"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"github.com/vkngwrapper/partsim/sim"
	mock_sim "github.com/vkngwrapper/partsim/sim/mocks"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func newSimulator(t *testing.T, policy metadata.PlacementPolicy, size int) (*sim.Simulator, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	simulator, err := sim.New(slog.New(slog.NewTextHandler(&logs)), sim.CreateOptions{
		PartitionSize:     size,
		Policy:            policy,
		ValidateEachEvent: true,
	})
	require.NoError(t, err)

	return simulator, &logs
}

func requireTiled(t *testing.T, snapshot sim.Snapshot) {
	t.Helper()

	next := 0
	for _, b := range snapshot.Regions() {
		require.Equal(t, next, b.Start, "gap or overlap at %s", b)
		next = b.End + 1
	}
	require.Equal(t, snapshot.PartitionSize, next)
}

func TestNewSimulator(t *testing.T) {
	simulator, err := sim.New(nil, sim.CreateOptions{PartitionSize: 64})
	require.NoError(t, err)
	require.Equal(t, metadata.PlacementFirstFit, simulator.Policy())
	require.Equal(t, 64, simulator.PartitionSize())
	require.Equal(t, sim.Snapshot{
		Policy:        metadata.PlacementFirstFit,
		PartitionSize: 64,
		Free:          []block.Block{block.Free(0, 63)},
		Allocated:     []block.Block{},
	}.Fingerprint(), simulator.Snapshot().Fingerprint())

	_, err = sim.New(nil, sim.CreateOptions{PartitionSize: 0})
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)

	_, err = sim.New(nil, sim.CreateOptions{PartitionSize: 10, Policy: metadata.PlacementPolicy(9)})
	require.ErrorIs(t, err, memutils.ErrInvalidRequest)
}

func TestSimulatorEndToEnd(t *testing.T) {
	simulator, _ := newSimulator(t, metadata.PlacementFirstFit, 100)

	results, err := simulator.Run([]sim.Event{
		sim.Allocate(1, 20),
		sim.Allocate(2, 30),
		sim.Deallocate(1),
		sim.Coalesce(),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, result := range results {
		require.True(t, result.Succeeded())
		require.Equal(t, i, result.Index)
	}

	require.Equal(t, block.Free(0, 99), results[0].Selected)
	require.Equal(t, block.New(1, 0, 19), results[0].Allocated)
	require.True(t, results[0].HasFragment)
	require.Equal(t, block.Free(20, 99), results[0].Fragment)
	require.Equal(t, block.Free(0, 19), results[2].Freed)
	require.Equal(t, 2, results[3].Coalesce.BlocksBefore)
	require.Equal(t, 0, results[3].Coalesce.Merges)

	snapshot := simulator.Snapshot()
	require.Equal(t, []block.Block{block.New(2, 20, 49)}, snapshot.Allocated)
	require.Equal(t, []block.Block{block.Free(0, 19), block.Free(50, 99)}, snapshot.Free)
	requireTiled(t, snapshot)
	require.Equal(t, 4, simulator.EventCount())
}

func TestSimulatorAllocationFailure(t *testing.T) {
	simulator, logs := newSimulator(t, metadata.PlacementFirstFit, 10)
	before := simulator.Snapshot()

	result, err := simulator.Apply(sim.Allocate(1, 20))
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	require.ErrorIs(t, result.Err, memutils.ErrAllocationFailed)

	var failed *metadata.AllocationFailedError
	require.ErrorAs(t, result.Err, &failed)
	require.Equal(t, 1, failed.Owner)
	require.Equal(t, 20, failed.Size)

	require.True(t, before.Equal(simulator.Snapshot()))
	require.Contains(t, logs.String(), "event failed")
}

func TestSimulatorFailuresDoNotStopRun(t *testing.T) {
	simulator, logs := newSimulator(t, metadata.PlacementBestFit, 50)

	results, err := simulator.Run([]sim.Event{
		sim.Deallocate(3),
		sim.Allocate(1, 60),
		sim.Allocate(0, 5),
		sim.Allocate(sim.ReservedOwner, 5),
		sim.Allocate(2, -1),
		{Kind: sim.EventKind(42)},
		sim.Allocate(1, 10),
		sim.Allocate(1, 10),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 8)

	require.ErrorIs(t, results[0].Err, memutils.ErrOwnerNotFound)
	require.ErrorIs(t, results[1].Err, memutils.ErrAllocationFailed)
	require.ErrorIs(t, results[2].Err, memutils.ErrInvalidRequest)
	require.ErrorIs(t, results[3].Err, memutils.ErrInvalidRequest)
	require.ErrorIs(t, results[4].Err, memutils.ErrInvalidRequest)
	require.ErrorIs(t, results[5].Err, memutils.ErrInvalidRequest)
	require.True(t, results[6].Succeeded())
	require.ErrorIs(t, results[7].Err, memutils.ErrInvalidRequest)

	require.Equal(t, []block.Block{block.New(1, 0, 9)}, simulator.Snapshot().Allocated)
	require.Equal(t, 8, simulator.EventCount())
	require.Equal(t, 7, bytes.Count(logs.Bytes(), []byte("event failed")))
}

func TestSimulatorObserver(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	simulator, _ := newSimulator(t, metadata.PlacementWorstFit, 100)
	observer := mock_sim.NewMockObserver(ctrl)

	var snapshots []sim.Snapshot
	record := func(result sim.Result, snapshot sim.Snapshot) {
		snapshots = append(snapshots, snapshot)
	}

	gomock.InOrder(
		observer.EXPECT().OnEvent(gomock.Any(), gomock.Any()).Do(record),
		observer.EXPECT().OnEvent(gomock.Any(), gomock.Any()).Do(record),
		observer.EXPECT().OnEvent(gomock.Any(), gomock.Any()).Do(record),
	)

	_, err := simulator.Run([]sim.Event{
		sim.Allocate(1, 10),
		sim.Allocate(2, 200),
		sim.Deallocate(1),
	}, observer)
	require.NoError(t, err)

	require.Len(t, snapshots, 3)
	require.Equal(t, []block.Block{block.New(1, 0, 9)}, snapshots[0].Allocated)
	require.Equal(t, []block.Block{block.Free(10, 99)}, snapshots[0].Free)
	require.True(t, snapshots[0].Equal(snapshots[1]))
	require.Empty(t, snapshots[2].Allocated)
	require.Equal(t, []block.Block{block.Free(10, 99), block.Free(0, 9)}, snapshots[2].Free)
}

func TestSimulatorObserverFunc(t *testing.T) {
	simulator, _ := newSimulator(t, metadata.PlacementFirstFit, 30)

	var kinds []sim.EventKind
	_, err := simulator.Run([]sim.Event{sim.Allocate(1, 10), sim.Coalesce()}, sim.ObserverFunc(func(result sim.Result, snapshot sim.Snapshot) {
		kinds = append(kinds, result.Event.Kind)
	}))
	require.NoError(t, err)
	require.Equal(t, []sim.EventKind{sim.EventAllocate, sim.EventCoalesce}, kinds)
}

func TestSimulatorStatistics(t *testing.T) {
	simulator, _ := newSimulator(t, metadata.PlacementFirstFit, 100)
	_, err := simulator.Run([]sim.Event{
		sim.Allocate(1, 20),
		sim.Allocate(2, 30),
		sim.Deallocate(1),
	}, nil)
	require.NoError(t, err)

	stats := simulator.Statistics()
	require.Equal(t, 1, stats.AllocationCount)
	require.Equal(t, 30, stats.AllocationBytes)
	require.Equal(t, 2, stats.FreeRangeCount)
	require.Equal(t, 70, stats.FreeBytes)
	require.Equal(t, 50, stats.FreeRangeSizes.Max)
}

func TestSimulatorPrintDetailedMap(t *testing.T) {
	simulator, _ := newSimulator(t, metadata.PlacementFirstFit, 100)
	_, err := simulator.Run([]sim.Event{
		sim.Allocate(1, 20),
		sim.Allocate(2, 30),
		sim.Deallocate(1),
	}, nil)
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	simulator.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())

	require.JSONEq(t, `{
		"Events": 3,
		"Policy": "FirstFit",
		"TotalBytes": 100,
		"UnusedBytes": 70,
		"Allocations": 1,
		"UnusedRanges": 2,
		"FreeList": [
			{"Start": 50, "End": 99, "Size": 50, "Type": "FREE"},
			{"Start": 0, "End": 19, "Size": 20, "Type": "FREE"}
		],
		"Blocks": [
			{"Start": 0, "End": 19, "Size": 20, "Type": "FREE"},
			{"Start": 20, "End": 49, "Size": 30, "Type": "ALLOCATED", "Owner": 2},
			{"Start": 50, "End": 99, "Size": 50, "Type": "FREE"}
		]
	}`, string(writer.Bytes()))
}

func TestSimulatorRandomizedInvariants(t *testing.T) {
	faker := gofakeit.New(31337)

	for _, policy := range metadata.PlacementPolicies() {
		t.Run(policy.String(), func(t *testing.T) {
			simulator, _ := newSimulator(t, policy, 256)

			events := make([]sim.Event, 0, 300)
			for i := 0; i < 300; i++ {
				owner := faker.IntRange(1, 16)
				switch faker.IntRange(0, 7) {
				case 0:
					events = append(events, sim.Coalesce())
				case 1, 2, 3:
					events = append(events, sim.Deallocate(owner))
				default:
					events = append(events, sim.Allocate(owner, faker.IntRange(1, 64)))
				}
			}

			_, err := simulator.Run(events, sim.ObserverFunc(func(result sim.Result, snapshot sim.Snapshot) {
				requireTiled(t, snapshot)

				owners := map[int]bool{}
				for _, b := range snapshot.Allocated {
					require.False(t, owners[b.Owner], "owner %d holds two blocks", b.Owner)
					owners[b.Owner] = true
				}

				if result.Event.Kind == sim.EventCoalesce {
					for i := 1; i < len(snapshot.Free); i++ {
						require.Less(t, snapshot.Free[i-1].End+1, snapshot.Free[i].Start)
					}
				}
			}))
			require.NoError(t, err)
		})
	}
}

func TestSimulatorCoalesceIdempotent(t *testing.T) {
	simulator, _ := newSimulator(t, metadata.PlacementBestFit, 100)
	_, err := simulator.Run([]sim.Event{
		sim.Allocate(1, 10),
		sim.Allocate(2, 10),
		sim.Allocate(3, 10),
		sim.Deallocate(2),
		sim.Deallocate(1),
		sim.Coalesce(),
	}, nil)
	require.NoError(t, err)

	once := simulator.Snapshot()
	require.Equal(t, []block.Block{block.Free(0, 19), block.Free(30, 99)}, once.Free)

	result, err := simulator.Apply(sim.Coalesce())
	require.NoError(t, err)
	require.Equal(t, 0, result.Coalesce.Merges)
	require.True(t, once.Equal(simulator.Snapshot()))
	require.Equal(t, once.Fingerprint(), simulator.Snapshot().Fingerprint())
}
