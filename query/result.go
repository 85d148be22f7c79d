package query

import (
	"strconv"
	"strings"
)

// Result is the value computed for a single query and grouping key.
type Result struct {
	Key   string
	Query Query
	Value float64
}

// String renders the result as a tab-separated output line without the
// trailing newline.
func (r Result) String() string {
	var sb strings.Builder
	sb.WriteString(r.Key)
	sb.WriteByte('\t')
	sb.WriteString(r.Query.String())
	sb.WriteByte('\t')
	sb.WriteString(strconv.FormatFloat(r.Value, 'f', -1, 64))
	return sb.String()
}
