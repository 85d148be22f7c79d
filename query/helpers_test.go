package query_test

import (
	"strings"
	"testing"

	"github.com/reugn/topgrep/internal/assert"
	"github.com/reugn/topgrep/top"
)

// snapshot builds a snapshot from a top block with the given timestamp,
// column header and rows.
func snapshot(t *testing.T, time, header string, rows ...string) *top.Snapshot {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("top - " + time + " up 1 day,  1 user\n\n")
	sb.WriteString(header + "\n")
	for _, row := range rows {
		sb.WriteString(row + "\n")
	}
	s, err := top.NewReader(strings.NewReader(sb.String()), top.NewPatterns()).Read()
	assert.NoError(t, err)
	return s
}

const header = "PID USER %CPU COMMAND"
