package top_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/reugn/topgrep/internal/assert"
	"github.com/reugn/topgrep/top"
)

const twoBlocks = `top - 12:00:01 up 3 days,  2:01,  1 user,  load average: 0.15, 0.10, 0.05
Tasks: 120 total,   1 running, 119 sleeping,   0 stopped,   0 zombie
%Cpu(s):  1.2 us,  0.3 sy,  0.0 ni, 98.5 id,  0.0 wa,  0.0 hi,  0.0 si,  0.0 st
MiB Mem :  15928.3 total,   9012.1 free,   3011.4 used,   3904.8 buff/cache

    PID USER      PR  NI    VIRT    RES    SHR S  %CPU  %MEM     TIME+ COMMAND
     42 alice     20   0  123456  12345   1234 S   3.5   0.1   0:01.23 myproc
   1001 bob       20   0  223456  22345   2234 R  12.0   0.2   1:02.03 firefox --profile /x y
      1 root      20   0  168000  11000   8000 S   0.0   0.1   0:05.00 systemd

top - 12:00:04 up 3 days,  2:01,  1 user,  load average: 0.14, 0.10, 0.05
Tasks: 120 total,   1 running, 119 sleeping,   0 stopped,   0 zombie

    PID USER      PR  NI    VIRT    RES    SHR S  %CPU  %MEM     TIME+ COMMAND
     42 alice     20   0  123456  12345   1234 S   4.5   0.1   0:01.30 myproc
`

func newReader(input string) *top.Reader {
	return top.NewReader(strings.NewReader(input), top.NewPatterns())
}

func TestReader_TwoBlocks(t *testing.T) {
	reader := newReader(twoBlocks)

	first, err := reader.Read()
	assert.NoError(t, err)
	assert.Equal(t, "12:00:01", first.Time)
	assert.Equal(t, 12, len(first.Columns))
	assert.Equal(t, 3, first.RowCount())

	pids, ok := first.Column("PID")
	assert.Equal(t, true, ok)
	assert.Equal(t, []string{"42", "1001", "1"}, pids)

	commands, _ := first.Column("COMMAND")
	assert.Equal(t, []string{"myproc", "firefox --profile /x y", "systemd"}, commands)

	second, err := reader.Read()
	assert.NoError(t, err)
	assert.Equal(t, "12:00:04", second.Time)
	assert.Equal(t, 1, second.RowCount())
	cpu, _ := second.Process(0).Lookup("%CPU")
	assert.Equal(t, "4.5", cpu)

	_, err = reader.Read()
	assert.ErrorIs(t, err, io.EOF)

	// the reader stays at the end of the stream
	_, err = reader.Read()
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, top.Stats{Snapshots: 2, Rows: 4}, reader.Stats())
}

func TestReader_ColumnLengths(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{"empty", nil},
		{"single", []string{"1 x y"}},
		{"many", []string{"1 x y", "2 x y", "3 x y", "4 x y", "5 x y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "top - 10:00:00 up 1 day\n\nA B C\n" + strings.Join(tt.rows, "\n") + "\n"
			snapshot, err := newReader(input).Read()
			assert.NoError(t, err)
			assert.Equal(t, []string{"A", "B", "C"}, snapshot.Columns)
			assert.Equal(t, len(tt.rows), snapshot.RowCount())
			for _, column := range snapshot.Columns {
				values, ok := snapshot.Column(column)
				assert.Equal(t, true, ok)
				assert.Equal(t, len(tt.rows), len(values))
			}
		})
	}
}

func TestReader_TrailingFieldPreserved(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		line     string
		column   string
		expected string
	}{
		{
			name:     "command",
			header:   "PID USER %CPU COMMAND",
			line:     "1 root 0.0 firefox --profile /x y",
			column:   "COMMAND",
			expected: "firefox --profile /x y",
		},
		{
			name:     "threeColumns",
			header:   "PID USER COMMAND",
			line:     "1 root 0.0 firefox --profile /x y",
			column:   "COMMAND",
			expected: "0.0 firefox --profile /x y",
		},
		{
			name:     "singleColumn",
			header:   "COMMAND",
			line:     "sh -c   sleep 1",
			column:   "COMMAND",
			expected: "sh -c   sleep 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "top - 10:00:00 up 1 day\n\n" + tt.header + "\n" + tt.line + "\n"
			snapshot, err := newReader(input).Read()
			assert.NoError(t, err)
			assert.Equal(t, 1, snapshot.RowCount())
			value, err := snapshot.Process(0).Require(tt.column)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestReader_RaggedRowExcluded(t *testing.T) {
	input := `top - 10:00:00 up 1 day
Tasks: 1 total

PID USER %CPU COMMAND
1 root 0.0 init
2 root
3 root 1.5 kthreadd
`
	reader := newReader(input)
	snapshot, err := reader.Read()
	assert.NoError(t, err)
	assert.Equal(t, 2, snapshot.RowCount())

	pids, _ := snapshot.Column("PID")
	assert.Equal(t, []string{"1", "3"}, pids)
	users, _ := snapshot.Column("USER")
	assert.Equal(t, []string{"root", "root"}, users)

	assert.Equal(t, top.Stats{Snapshots: 1, Rows: 2, DroppedRows: 1}, reader.Stats())
}

func TestReader_BannerLinesDiscarded(t *testing.T) {
	input := `garbage before the first block
PID COMMAND %CPU
1 ignored 99.0

top - 10:00:00 up 1 day

PID COMMAND %CPU
42 myproc 3.5
`
	snapshot, err := newReader(input).Read()
	assert.NoError(t, err)
	assert.Equal(t, "10:00:00", snapshot.Time)
	pids, _ := snapshot.Column("PID")
	assert.Equal(t, []string{"42"}, pids)
}

func TestReader_NoTrailingNewline(t *testing.T) {
	input := "top - 10:00:00 up 1 day\n\nPID COMMAND %CPU\n42 myproc 3.5"
	snapshot, err := newReader(input).Read()
	assert.NoError(t, err)
	assert.Equal(t, 1, snapshot.RowCount())
}

func TestReader_EmptyStream(t *testing.T) {
	for _, input := range []string{"", "\n\n", "no header here\n"} {
		_, err := newReader(input).Read()
		assert.ErrorIs(t, err, io.EOF)
	}
}

func TestReader_MissingColumnHeader(t *testing.T) {
	tests := []string{
		"top - 10:00:00 up 1 day\nTasks: 1 total\n",
		"top - 10:00:00 up 1 day\n\n",
		"top - 10:00:00 up 1 day\n\n\n",
	}
	for _, input := range tests {
		_, err := newReader(input).Read()
		assert.ErrorIs(t, err, top.ErrMissingColumnHeader)
		assert.ErrorContains(t, err, "10:00:00")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestReader_IOError(t *testing.T) {
	reader := top.NewReader(failingReader{}, top.NewPatterns())
	_, err := reader.Read()
	assert.ErrorContains(t, err, "broken pipe")
	assert.NotEqual(t, true, errors.Is(err, io.EOF))
}

func TestNewReader_NilPatterns(t *testing.T) {
	assert.Panics(t, func() {
		top.NewReader(strings.NewReader(""), nil)
	})
}
