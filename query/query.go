// Package query evaluates process queries against top snapshots and folds the
// per-snapshot results into grouped means.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Column names consumed by the query engine.
const (
	ColumnPID     = "PID"
	ColumnCommand = "COMMAND"
	ColumnCPU     = "%CPU"
)

// ErrInvalidField is returned when a numeric column value cannot be parsed.
var ErrInvalidField = errors.New("invalid field")

// Kind identifies the column a Query matches on.
type Kind int

const (
	// KindPID matches on the PID column.
	KindPID Kind = iota + 1
	// KindCommand matches on the COMMAND column.
	KindCommand
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPID:
		return "pid"
	case KindCommand:
		return "command"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Query selects the process rows whose PID or command equals a given value.
// Query values are comparable and can be used as map keys.
type Query struct {
	kind    Kind
	pid     uint32
	command string
}

// ByPID returns a Query matching the rows with the given PID.
func ByPID(pid uint32) Query {
	return Query{kind: KindPID, pid: pid}
}

// ByCommand returns a Query matching the rows whose COMMAND column equals
// name exactly.
func ByCommand(name string) Query {
	return Query{kind: KindCommand, command: name}
}

// Parse parses a query in the form "pid:<number>" or "command:<name>".
func Parse(s string) (Query, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return Query{}, fmt.Errorf("malformed query %q", s)
	}
	switch kind {
	case "pid":
		pid, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Query{}, fmt.Errorf("malformed pid query %q: %w", s, err)
		}
		return ByPID(uint32(pid)), nil
	case "command":
		if value == "" {
			return Query{}, fmt.Errorf("empty command query %q", s)
		}
		return ByCommand(value), nil
	default:
		return Query{}, fmt.Errorf("unknown query kind %q", kind)
	}
}

// Kind returns the kind of the query.
func (q Query) Kind() Kind {
	return q.kind
}

// PID returns the PID of a KindPID query.
func (q Query) PID() uint32 {
	return q.pid
}

// Command returns the command name of a KindCommand query.
func (q Query) Command() string {
	return q.command
}

// String returns the display form of the query: the bare PID or the bare
// command name.
func (q Query) String() string {
	if q.kind == KindPID {
		return strconv.FormatUint(uint64(q.pid), 10)
	}
	return q.command
}

// column returns the column the query matches on.
func (q Query) column() string {
	if q.kind == KindPID {
		return ColumnPID
	}
	return ColumnCommand
}
