package sim

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/memutils/block"
	"github.com/vkngwrapper/partsim/memutils/defrag"
	"github.com/vkngwrapper/partsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateOptions contains settings when creating a Simulator
type CreateOptions struct {
	// PartitionSize is the number of offsets in the simulated partition. It must be positive.
	PartitionSize int
	// Policy is the placement policy used for the whole simulation. If left empty, metadata.PlacementFirstFit
	// is used.
	Policy metadata.PlacementPolicy
	// ValidateEachEvent runs the partition's internal consistency checks after every event. A failed check
	// is returned as an error from Apply and Run, and the simulation should not continue.
	ValidateEachEvent bool
}

// Simulator replays events against a single partition, one event at a time. A Simulator is not safe for
// concurrent use: every event is applied to completion before the next one may begin.
type Simulator struct {
	logger            *slog.Logger
	metadata          metadata.Metadata
	validateEachEvent bool
	eventCount        int
}

// New creates a new Simulator
//
// logger - Receives a debug record for every block that is selected, split, freed or merged, a warning
// for every event that fails, and an error if the partition is found to be corrupt. If nil,
// slog.Default() is used.
//
// options - PartitionSize is required; the other fields may be left blank
func New(logger *slog.Logger, options CreateOptions) (*Simulator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	policy := options.Policy
	if policy == 0 {
		policy = metadata.PlacementFirstFit
	}

	md, err := metadata.NewPartitionMetadata(policy)
	if err != nil {
		return nil, err
	}

	err = md.Init(options.PartitionSize)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize partition")
	}

	return &Simulator{
		logger:            logger,
		metadata:          md,
		validateEachEvent: options.ValidateEachEvent,
	}, nil
}

// Policy returns the placement policy the simulation runs with
func (s *Simulator) Policy() metadata.PlacementPolicy {
	return s.metadata.Policy()
}

// PartitionSize returns the number of offsets in the simulated partition
func (s *Simulator) PartitionSize() int {
	return s.metadata.Size()
}

// EventCount returns the number of events applied so far, including failed ones
func (s *Simulator) EventCount() int {
	return s.eventCount
}

// Apply performs a single event against the partition.
//
// Expected failures (no free block large enough, an unknown owner, a malformed event) are reported in
// Result.Err and leave the partition unchanged; the error return value is nil in those cases. A non-nil
// error means the partition's internal state is corrupt and the simulation cannot continue.
func (s *Simulator) Apply(event Event) (Result, error) {
	result := Result{Event: event, Index: s.eventCount}
	s.eventCount++

	err := event.Validate()
	if err != nil {
		result.Err = err
		s.logFailure(result)
		return result, nil
	}

	switch event.Kind {
	case EventAllocate:
		err = s.allocate(&result)
	case EventDeallocate:
		s.deallocate(&result)
	case EventCoalesce:
		s.coalesce(&result)
	}

	if err != nil {
		return result, err
	}

	if result.Err != nil {
		s.logFailure(result)
	}

	if s.validateEachEvent {
		err = s.metadata.Validate()
		if err != nil {
			s.logger.LogAttrs(context.Background(), slog.LevelError, "partition failed validation",
				slog.Int("event", result.Index),
				slog.String("kind", event.Kind.String()),
				slog.Any("error", err))
			return result, errors.Wrapf(err, "partition is corrupt after event %d (%s)", result.Index, event)
		}
	}

	return result, nil
}

func (s *Simulator) allocate(result *Result) error {
	event := result.Event

	success, request, err := s.metadata.CreateAllocationRequest(event.Owner, event.Size)
	if err != nil {
		result.Err = err
		return nil
	}

	if !success {
		result.Err = &metadata.AllocationFailedError{Owner: event.Owner, Size: event.Size}
		return nil
	}

	err = s.metadata.Alloc(request)
	if err != nil {
		return errors.Wrapf(err, "could not commit allocation request for owner %d", event.Owner)
	}

	result.Selected = request.Selected
	result.Allocated = request.Allocated()
	result.Fragment, result.HasFragment = request.Fragment()

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Simulator::allocate",
		slog.Int("owner", event.Owner),
		slog.Int("size", event.Size),
		slog.String("policy", request.Policy.String()),
		slog.String("selected", result.Selected.String()),
		slog.String("allocated", result.Allocated.String()))

	if result.HasFragment {
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Returned fragment to free list",
			slog.String("fragment", result.Fragment.String()),
			slog.Int("size", result.Fragment.Size()))
	}

	return nil
}

func (s *Simulator) deallocate(result *Result) {
	freed, err := s.metadata.Free(result.Event.Owner)
	if err != nil {
		result.Err = err
		return
	}

	result.Freed = freed
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Simulator::deallocate",
		slog.Int("owner", result.Event.Owner),
		slog.String("freed", freed.String()),
		slog.Int("size", freed.Size()))
}

func (s *Simulator) coalesce(result *Result) {
	pass := defrag.PassContext{
		OnMerge: func(current, next, merged block.Block) {
			s.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Merged free blocks",
				slog.String("current", current.String()),
				slog.String("next", next.String()),
				slog.String("merged", merged.String()))
		},
	}

	s.metadata.CoalescePass(&pass)
	result.Coalesce = pass.Stats

	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "Simulator::coalesce",
		slog.Int("blocksBefore", pass.Stats.BlocksBefore),
		slog.Int("blocksAfter", pass.Stats.BlocksAfter),
		slog.Int("merges", pass.Stats.Merges))
}

func (s *Simulator) logFailure(result Result) {
	s.logger.LogAttrs(context.Background(), slog.LevelWarn, "event failed",
		slog.Int("event", result.Index),
		slog.String("kind", result.Event.Kind.String()),
		slog.Int("owner", result.Event.Owner),
		slog.Int("size", result.Event.Size),
		slog.Any("error", result.Err))
}

// Run applies each event in order, calling observer (if not nil) with the result and a snapshot of the
// partition after each one. Failed events are logged and the simulation moves on to the next event. Run
// stops early only when the partition is found to be corrupt, returning the results gathered so far along
// with the error.
func (s *Simulator) Run(events []Event, observer Observer) ([]Result, error) {
	results := make([]Result, 0, len(events))

	for _, event := range events {
		result, err := s.Apply(event)
		if err != nil {
			return results, err
		}

		results = append(results, result)
		if observer != nil {
			observer.OnEvent(result, s.Snapshot())
		}
	}

	return results, nil
}

// Snapshot returns a copy of the partition's free and allocated lists
func (s *Simulator) Snapshot() Snapshot {
	return Snapshot{
		Policy:        s.metadata.Policy(),
		PartitionSize: s.metadata.Size(),
		Free:          s.metadata.FreeBlocks(),
		Allocated:     s.metadata.AllocatedBlocks(),
	}
}

// Statistics returns detailed statistics about the partition's current layout
func (s *Simulator) Statistics() memutils.DetailedStatistics {
	var stats memutils.DetailedStatistics
	stats.Clear()
	s.metadata.AddDetailedStatistics(&stats)
	return stats
}

// Validate runs the partition's internal consistency checks
func (s *Simulator) Validate() error {
	return s.metadata.Validate()
}

// LogLiveAllocations writes one record at the provided level for every allocation still held
func (s *Simulator) LogLiveAllocations(level slog.Level) {
	for _, b := range s.metadata.AllocatedBlocks() {
		s.logger.LogAttrs(context.Background(), level, "live allocation",
			slog.Int("owner", b.Owner),
			slog.Int("start", b.Start),
			slog.Int("end", b.End),
			slog.Int("size", b.Size()))
	}
}

// PrintDetailedMap writes a json object describing the partition: summary information, the free list in
// its current order, and every block in address order
func (s *Simulator) PrintDetailedMap(writer *jwriter.Writer) {
	objState := writer.Object()
	defer objState.End()

	objState.Name("Events").Int(s.eventCount)
	s.metadata.BlockJsonData(objState)

	freeList := objState.Name("FreeList").Array()
	for _, b := range s.metadata.FreeBlocks() {
		printBlock(&freeList, b)
	}
	freeList.End()

	regions := objState.Name("Blocks").Array()
	defer regions.End()

	_ = s.metadata.VisitAllRegions(func(b block.Block) error {
		printBlock(&regions, b)
		return nil
	})
}

func printBlock(arrayState *jwriter.ArrayState, b block.Block) {
	obj := arrayState.Object()
	defer obj.End()

	obj.Name("Start").Int(b.Start)
	obj.Name("End").Int(b.End)
	obj.Name("Size").Int(b.Size())
	if b.IsFree() {
		obj.Name("Type").String("FREE")
	} else {
		obj.Name("Type").String("ALLOCATED")
		obj.Name("Owner").Int(b.Owner)
	}
}
