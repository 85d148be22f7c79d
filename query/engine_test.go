package query_test

import (
	"testing"

	"github.com/reugn/topgrep/internal/assert"
	"github.com/reugn/topgrep/query"
	"github.com/reugn/topgrep/top"
)

func TestEngine_Evaluate(t *testing.T) {
	s := snapshot(t, "12:00:01", header,
		"42 alice 3.5 myproc",
		"1 root 0.0 systemd",
	)
	engine := query.NewEngine(query.ByPID(42), query.ByCommand("systemd"), query.ByPID(42))

	results, err := engine.Evaluate(s)
	assert.NoError(t, err)
	assert.Equal(t, []query.Result{
		{Key: "12:00:01", Query: query.ByPID(42), Value: 3.5},
		{Key: "12:00:01", Query: query.ByCommand("systemd"), Value: 0},
		{Key: "12:00:01", Query: query.ByPID(42), Value: 3.5},
	}, results)

	again, err := engine.Evaluate(s)
	assert.NoError(t, err)
	assert.Equal(t, results, again)
}

func TestEngine_NoQueries(t *testing.T) {
	s := snapshot(t, "12:00:01", "A B")
	results, err := query.NewEngine().Evaluate(s)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(results))
}

func TestEngine_Error(t *testing.T) {
	s := snapshot(t, "12:00:01", "PID COMMAND", "42 myproc")
	_, err := query.NewEngine(query.ByPID(42)).Evaluate(s)
	assert.ErrorIs(t, err, top.ErrMissingColumn)
}
