package script

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/memutils"
	"github.com/vkngwrapper/partsim/sim"
)

// CoalesceMarker is the owner value that marks a coalesce line in a text script
const CoalesceMarker = -sim.ReservedOwner

// ErrMalformedScript is wrapped by every error caused by the contents of a script, as opposed to an error
// reading it
var ErrMalformedScript = errors.New("malformed script")

// malformed wraps both ErrMalformedScript and cause, so errors.Is matches either one
func malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformedScript, cause)
}

func malformedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformedScript, format, args...)
}

// Script is a parsed simulation: the size of the partition to simulate and the events to replay against it
type Script struct {
	PartitionSize int
	Events        []sim.Event
}

// Validate returns an error if the partition size is not positive or any event is malformed
func (s *Script) Validate() error {
	err := memutils.CheckPositive(s.PartitionSize, "partition size")
	if err != nil {
		return malformed(err)
	}

	for i, event := range s.Events {
		err = event.Validate()
		if err != nil {
			return malformed(errors.Wrapf(err, "event %d", i))
		}
	}

	return nil
}

// Load reads the script at path. Files with a .json extension are parsed as JSON scripts, anything else
// as a text script.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read script %s", path)
	}

	var s *Script
	if strings.EqualFold(filepath.Ext(path), ".json") {
		s, err = ParseJSON(data)
	} else {
		s, err = ParseText(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse script %s", path)
	}

	return s, nil
}
