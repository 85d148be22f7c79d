package top

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is returned when a required column is not part of a
// snapshot's schema.
var ErrMissingColumn = errors.New("missing column")

// Snapshot is one sampling interval of top output: the printed timestamp, the
// column schema declared by the block's header line and a column-major table
// of the row values.
//
// A Snapshot is fully assembled by the Reader before it is handed out and must
// be treated as read-only afterwards.
type Snapshot struct {
	// Time is the timestamp text as printed by top. It is never reinterpreted.
	Time string
	// Columns is the ordered schema of the block.
	Columns []string

	table map[string][]string
	// index maps each distinct column name to its first position in Columns.
	index map[string]int
	rows  int
}

// NewSnapshot returns an empty Snapshot with the given timestamp and schema.
func NewSnapshot(time string, columns []string) *Snapshot {
	s := &Snapshot{
		Time:    time,
		Columns: columns,
		table:   make(map[string][]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, column := range columns {
		if _, ok := s.index[column]; !ok {
			s.index[column] = i
		}
	}
	return s
}

// RowCount returns the number of rows in the snapshot.
func (s *Snapshot) RowCount() int {
	return s.rows
}

// HasColumn reports whether the column is part of the snapshot's schema.
func (s *Snapshot) HasColumn(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Column returns a copy of the values of the column, one per row.
func (s *Snapshot) Column(column string) ([]string, bool) {
	if !s.HasColumn(column) {
		return nil, false
	}
	return append(make([]string, 0, s.rows), s.table[column]...), true
}

// Process returns a view of the row at index i.
// It panics if i is out of range.
func (s *Snapshot) Process(i int) Process {
	if i < 0 || i >= s.rows {
		panic(fmt.Sprintf("row index %d out of range [0, %d)", i, s.rows))
	}
	return Process{snapshot: s, row: i}
}

// Processes returns views of all rows in table order.
func (s *Snapshot) Processes() []Process {
	processes := make([]Process, s.rows)
	for i := range processes {
		processes[i] = Process{snapshot: s, row: i}
	}
	return processes
}

// appendRow adds a row to every column. The caller guarantees that fields
// holds exactly one value per column.
func (s *Snapshot) appendRow(fields []string) bool {
	if len(fields) != len(s.Columns) {
		return false
	}
	for i, column := range s.Columns {
		// a duplicated column name keeps the values of its first occurrence
		if s.index[column] != i {
			continue
		}
		s.table[column] = append(s.table[column], fields[i])
	}
	s.rows++
	return true
}

// Process is a read-only view of a single row of a Snapshot.
// It does not own any data and must not outlive its Snapshot.
type Process struct {
	snapshot *Snapshot
	row      int
}

// Lookup returns the value of the column for this row. The second return
// value is false if the column is not part of the schema.
func (p Process) Lookup(column string) (string, bool) {
	if !p.snapshot.HasColumn(column) {
		return "", false
	}
	return p.snapshot.table[column][p.row], true
}

// Require returns the value of the column for this row, or an error wrapping
// ErrMissingColumn if the column is not part of the schema.
func (p Process) Require(column string) (string, error) {
	value, ok := p.Lookup(column)
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingColumn, column)
	}
	return value, nil
}
