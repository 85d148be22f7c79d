package query

import "github.com/reugn/topgrep/top"

// Engine evaluates an ordered list of queries against snapshots.
// Engine holds no per-snapshot state; evaluating the same snapshot twice
// yields equal results.
type Engine struct {
	queries []Query
}

// NewEngine returns a new Engine for the given queries. Duplicate queries
// are kept and evaluated independently.
func NewEngine(queries ...Query) *Engine {
	return &Engine{queries: append([]Query(nil), queries...)}
}

// Evaluate returns one Result per query, in query order, keyed by the
// snapshot's timestamp.
func (e *Engine) Evaluate(s *top.Snapshot) ([]Result, error) {
	if len(e.queries) == 0 {
		return nil, nil
	}
	results := make([]Result, len(e.queries))
	for i, q := range e.queries {
		sum, err := Sum(s, q)
		if err != nil {
			return nil, err
		}
		results[i] = Result{Key: s.Time, Query: q, Value: sum}
	}
	return results, nil
}
