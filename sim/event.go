package sim

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils"
)

// EventKind identifies the operation an Event asks the simulator to perform
type EventKind uint32

const (
	// EventAllocate asks for Size offsets to be allocated to Owner
	EventAllocate EventKind = iota + 1
	// EventDeallocate asks for the allocation held by Owner to be freed
	EventDeallocate
	// EventCoalesce asks for adjacent free blocks to be merged
	EventCoalesce
)

var eventKindMapping = map[EventKind]string{
	EventAllocate:   "Allocate",
	EventDeallocate: "Deallocate",
	EventCoalesce:   "Coalesce",
}

func (k EventKind) String() string {
	return eventKindMapping[k]
}

// ReservedOwner is the owner value that event scripts use to mark a coalesce event. It can never be used as
// a real owner.
const ReservedOwner = 99999

// Event is a single step of a simulation script
type Event struct {
	Kind  EventKind
	Owner int
	Size  int
}

func Allocate(owner, size int) Event {
	return Event{Kind: EventAllocate, Owner: owner, Size: size}
}

func Deallocate(owner int) Event {
	return Event{Kind: EventDeallocate, Owner: owner}
}

func Coalesce() Event {
	return Event{Kind: EventCoalesce}
}

// Validate returns an error wrapping memutils.ErrInvalidRequest if the event is malformed: an unknown kind,
// a non-positive or reserved owner on an allocate or deallocate, or a non-positive size on an allocate.
func (e Event) Validate() error {
	switch e.Kind {
	case EventCoalesce:
		return nil
	case EventAllocate, EventDeallocate:
	default:
		return errors.Wrapf(memutils.ErrInvalidRequest, "unknown event kind %d", e.Kind)
	}

	err := memutils.CheckPositive(e.Owner, "owner")
	if err != nil {
		return err
	}

	if e.Owner == ReservedOwner {
		return errors.Wrapf(memutils.ErrInvalidRequest, "owner %d is reserved", ReservedOwner)
	}

	if e.Kind == EventAllocate {
		return memutils.CheckPositive(e.Size, "allocation size")
	}

	return nil
}

func (e Event) String() string {
	switch e.Kind {
	case EventAllocate:
		return fmt.Sprintf("Allocate(P%d, %d)", e.Owner, e.Size)
	case EventDeallocate:
		return fmt.Sprintf("Deallocate(P%d)", e.Owner)
	case EventCoalesce:
		return "Coalesce"
	default:
		return fmt.Sprintf("Unknown(%d)", e.Kind)
	}
}
