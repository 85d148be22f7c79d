package query

import (
	"fmt"
	"strconv"

	"github.com/reugn/topgrep/top"
)

// Match reports whether the process row is selected by the query.
// A PID value that is not a valid unsigned 32-bit integer is an error
// wrapping ErrInvalidField.
func Match(q Query, p top.Process) (bool, error) {
	value, err := p.Require(q.column())
	if err != nil {
		return false, err
	}
	switch q.kind {
	case KindPID:
		pid, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return false, fmt.Errorf("%w: %s %q", ErrInvalidField, ColumnPID, value)
		}
		return uint32(pid) == q.pid, nil
	case KindCommand:
		return value == q.command, nil
	default:
		return false, fmt.Errorf("unsupported query kind %s", q.kind)
	}
}

// Sum returns the total %CPU of the snapshot rows matched by the query, or 0
// if no row matches. The snapshot must declare both the query's column and
// the %CPU column, even when it holds no rows.
func Sum(s *top.Snapshot, q Query) (float64, error) {
	for _, column := range []string{q.column(), ColumnCPU} {
		if !s.HasColumn(column) {
			return 0, fmt.Errorf("snapshot %q: %w %q", s.Time, top.ErrMissingColumn, column)
		}
	}

	var sum float64
	for _, process := range s.Processes() {
		ok, err := Match(q, process)
		if err != nil {
			return 0, fmt.Errorf("snapshot %q: %w", s.Time, err)
		}
		if !ok {
			continue
		}
		value, _ := process.Lookup(ColumnCPU)
		cpu, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("snapshot %q: %w: %s %q", s.Time, ErrInvalidField, ColumnCPU, value)
		}
		sum += cpu
	}
	return sum, nil
}
