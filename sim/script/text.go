package script

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/partsim/sim"
)

// ParseText reads a text script. The first line holds the partition size. Every line after that holds an
// owner and a size separated by whitespace:
//
//	owner > 0         allocate size offsets to owner
//	owner < 0         free the allocation held by -owner; size may be omitted
//	owner == -99999   coalesce the free list; size may be omitted
//
// Blank lines and anything following a # are ignored.
func ParseText(r io.Reader) (*Script, error) {
	scanner := bufio.NewScanner(r)
	s := &Script{}
	sizeRead := false
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		fields := lineFields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if !sizeRead {
			size, err := parsePartitionSize(fields)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNumber)
			}

			s.PartitionSize = size
			sizeRead = true
			continue
		}

		event, err := parseEventLine(fields)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNumber)
		}

		s.Events = append(s.Events, event)
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "could not read text script")
	}

	if !sizeRead {
		return nil, malformedf("script does not contain a partition size")
	}

	err = s.Validate()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func lineFields(line string) []string {
	comment := strings.IndexByte(line, '#')
	if comment >= 0 {
		line = line[:comment]
	}

	return strings.Fields(line)
}

func parsePartitionSize(fields []string) (int, error) {
	if len(fields) != 1 {
		return 0, malformedf("expected a single partition size, found %d fields", len(fields))
	}

	return parseInt(fields[0], "partition size")
}

func parseEventLine(fields []string) (sim.Event, error) {
	if len(fields) > 2 {
		return sim.Event{}, malformedf("expected an owner and a size, found %d fields", len(fields))
	}

	owner, err := parseInt(fields[0], "owner")
	if err != nil {
		return sim.Event{}, err
	}

	switch {
	case owner == CoalesceMarker:
		return sim.Coalesce(), nil
	case owner < 0:
		return sim.Deallocate(-owner), nil
	case owner == 0:
		return sim.Event{}, malformedf("owner 0 is not a valid owner")
	}

	if len(fields) < 2 {
		return sim.Event{}, malformedf("allocation for owner %d has no size", owner)
	}

	size, err := parseInt(fields[1], "allocation size")
	if err != nil {
		return sim.Event{}, err
	}

	return sim.Allocate(owner, size), nil
}

func parseInt(field string, name string) (int, error) {
	value, err := strconv.Atoi(field)
	if err != nil {
		return 0, malformed(errors.Wrapf(err, "%s %q is not an integer", name, field))
	}

	return value, nil
}

// WriteText writes s in the format read by ParseText
func WriteText(w io.Writer, s *Script) error {
	buffered := bufio.NewWriter(w)

	_, err := buffered.WriteString(strconv.Itoa(s.PartitionSize) + "\n")
	if err != nil {
		return err
	}

	for _, event := range s.Events {
		var line string
		switch event.Kind {
		case sim.EventAllocate:
			line = strconv.Itoa(event.Owner) + " " + strconv.Itoa(event.Size)
		case sim.EventDeallocate:
			line = strconv.Itoa(-event.Owner) + " 0"
		case sim.EventCoalesce:
			line = strconv.Itoa(CoalesceMarker) + " 0"
		default:
			return malformedf("cannot write event of unknown kind %d", event.Kind)
		}

		_, err = buffered.WriteString(line + "\n")
		if err != nil {
			return err
		}
	}

	return buffered.Flush()
}
