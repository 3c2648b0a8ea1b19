package script

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/sim"
)

// GenerateOptions controls the shape of a generated script
type GenerateOptions struct {
	// PartitionSize is the size of the partition the script runs against. It must be positive.
	PartitionSize int
	// Events is the number of events to generate
	Events int
	// Owners is the number of distinct owners events are drawn from. Defaults to 8.
	Owners int
	// MaxAllocation is the largest allocation size generated. Defaults to PartitionSize / 4, or 1 if that
	// is zero.
	MaxAllocation int
	// CoalesceEvery inserts a coalesce event after every CoalesceEvery events. Zero never coalesces.
	CoalesceEvery int
}

// Generate builds a random script. Every event is well formed: an owner is deallocated only after an
// allocate event for it, and allocated again only after it was deallocated. Replaying the script can still
// fail events, since an allocation may not fit and the matching deallocation then names an owner with
// nothing to free.
func Generate(faker *gofakeit.Faker, options GenerateOptions) (*Script, error) {
	err := memutils.CheckPositive(options.PartitionSize, "partition size")
	if err != nil {
		return nil, err
	}
	if options.Events < 0 {
		return nil, errors.Wrapf(memutils.ErrInvalidRequest, "event count must not be negative, but is %d", options.Events)
	}

	owners := options.Owners
	if owners <= 0 {
		owners = 8
	}
	if owners >= sim.ReservedOwner {
		return nil, errors.Wrapf(memutils.ErrInvalidRequest, "owner count must be below %d, but is %d", sim.ReservedOwner, owners)
	}

	maxAllocation := options.MaxAllocation
	if maxAllocation <= 0 {
		maxAllocation = options.PartitionSize / 4
	}
	if maxAllocation <= 0 {
		maxAllocation = 1
	}

	s := &Script{
		PartitionSize: options.PartitionSize,
		Events:        make([]sim.Event, 0, options.Events),
	}
	live := make(map[int]bool, owners)

	for len(s.Events) < options.Events {
		if options.CoalesceEvery > 0 && len(s.Events) > 0 && len(s.Events)%options.CoalesceEvery == 0 &&
			s.Events[len(s.Events)-1].Kind != sim.EventCoalesce {
			s.Events = append(s.Events, sim.Coalesce())
			continue
		}

		owner := faker.IntRange(1, owners)
		if live[owner] {
			s.Events = append(s.Events, sim.Deallocate(owner))
			delete(live, owner)
			continue
		}

		s.Events = append(s.Events, sim.Allocate(owner, faker.IntRange(1, maxAllocation)))
		live[owner] = true
	}

	return s, nil
}
