package query_test

import (
	"testing"

	"github.com/reugn/topgrep/internal/assert"
	"github.com/reugn/topgrep/query"
)

func TestQuery_String(t *testing.T) {
	assert.Equal(t, "42", query.ByPID(42).String())
	assert.Equal(t, "nginx", query.ByCommand("nginx").String())
	assert.Equal(t, query.KindPID, query.ByPID(42).Kind())
	assert.Equal(t, query.KindCommand, query.ByCommand("nginx").Kind())
	assert.Equal(t, "command", query.KindCommand.String())
}

func TestQuery_Comparable(t *testing.T) {
	seen := map[query.Query]int{}
	seen[query.ByPID(1)]++
	seen[query.ByPID(1)]++
	seen[query.ByCommand("1")]++
	assert.Equal(t, 2, len(seen))
	assert.Equal(t, 2, seen[query.ByPID(1)])
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected query.Query
		err      string
	}{
		{"pid:42", query.ByPID(42), ""},
		{"command:nginx", query.ByCommand("nginx"), ""},
		{"command:a:b", query.ByCommand("a:b"), ""},
		{"pid:-1", query.Query{}, "malformed pid query"},
		{"pid:4294967296", query.Query{}, "malformed pid query"},
		{"command:", query.Query{}, "empty command query"},
		{"user:root", query.Query{}, "unknown query kind"},
		{"42", query.Query{}, "malformed query"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			q, err := query.Parse(tt.input)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, q)
		})
	}
}

func TestResult_String(t *testing.T) {
	tests := []struct {
		result   query.Result
		expected string
	}{
		{query.Result{Key: "12:00:01", Query: query.ByPID(42), Value: 3.5}, "12:00:01\t42\t3.5"},
		{query.Result{Key: "12:00:01", Query: query.ByCommand("a b"), Value: 15}, "12:00:01\ta b\t15"},
		{query.Result{Key: "12:00:01", Query: query.ByPID(7), Value: 0}, "12:00:01\t7\t0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.result.String())
	}
}
