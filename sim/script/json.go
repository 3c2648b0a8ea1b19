package script

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/sim"
)

const (
	opAllocate   = "allocate"
	opDeallocate = "deallocate"
	opCoalesce   = "coalesce"
)

type scriptJSON struct {
	PartitionSize int         `json:"partitionSize"`
	Events        []eventJSON `json:"events"`
}

type eventJSON struct {
	Op   string `json:"op"`
	Pid  int    `json:"pid,omitempty"`
	Size int    `json:"size,omitempty"`
}

// ParseJSON decodes a JSON script of the form
//
//	{"partitionSize": 100, "events": [
//	    {"op": "allocate", "pid": 1, "size": 20},
//	    {"op": "deallocate", "pid": 1},
//	    {"op": "coalesce"}
//	]}
//
// Op names are case-insensitive.
func ParseJSON(data []byte) (*Script, error) {
	var decoded scriptJSON
	err := sonic.Unmarshal(data, &decoded)
	if err != nil {
		return nil, malformed(errors.Wrap(err, "could not decode json script"))
	}

	s := &Script{
		PartitionSize: decoded.PartitionSize,
		Events:        make([]sim.Event, 0, len(decoded.Events)),
	}

	for i, e := range decoded.Events {
		switch strings.ToLower(e.Op) {
		case opAllocate:
			s.Events = append(s.Events, sim.Allocate(e.Pid, e.Size))
		case opDeallocate:
			s.Events = append(s.Events, sim.Deallocate(e.Pid))
		case opCoalesce:
			s.Events = append(s.Events, sim.Coalesce())
		default:
			return nil, malformedf("event %d has unknown op %q", i, e.Op)
		}
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// MarshalJSON encodes s in the format read by ParseJSON
func (s *Script) MarshalJSON() ([]byte, error) {
	encoded := scriptJSON{
		PartitionSize: s.PartitionSize,
		Events:        make([]eventJSON, 0, len(s.Events)),
	}

	for _, event := range s.Events {
		switch event.Kind {
		case sim.EventAllocate:
			encoded.Events = append(encoded.Events, eventJSON{Op: opAllocate, Pid: event.Owner, Size: event.Size})
		case sim.EventDeallocate:
			encoded.Events = append(encoded.Events, eventJSON{Op: opDeallocate, Pid: event.Owner})
		case sim.EventCoalesce:
			encoded.Events = append(encoded.Events, eventJSON{Op: opCoalesce})
		default:
			return nil, malformedf("cannot encode event of unknown kind %d", event.Kind)
		}
	}

	return sonic.Marshal(encoded)
}
