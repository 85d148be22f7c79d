package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/reugn/topgrep/top"
)

// ErrInvalidTime is returned when a snapshot timestamp cannot be parsed
// for bucketing.
var ErrInvalidTime = errors.New("invalid time")

// DefaultTimeLayout is the timestamp layout printed by top.
const DefaultTimeLayout = time.TimeOnly

// KeyFunc computes the grouping key of a snapshot.
type KeyFunc func(*top.Snapshot) (string, error)

// ByTime groups snapshots with equal printed timestamps.
func ByTime() KeyFunc {
	return func(s *top.Snapshot) (string, error) {
		return s.Time, nil
	}
}

// ByBucket groups snapshots whose time of day falls in the same
// size-aligned bucket. The key is the bucket start formatted with layout.
// An empty layout defaults to DefaultTimeLayout. ByBucket panics if size is
// outside [1s, 24h].
func ByBucket(size time.Duration, layout string) KeyFunc {
	if size < time.Second || size > 24*time.Hour {
		panic(fmt.Sprintf("invalid bucket size: %s", size))
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return func(s *top.Snapshot) (string, error) {
		t, err := time.Parse(layout, s.Time)
		if err != nil {
			return "", fmt.Errorf("%w %q: %w", ErrInvalidTime, s.Time, err)
		}
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		offset := t.Sub(midnight)
		return midnight.Add(offset - offset%size).Format(layout), nil
	}
}

type accumulator struct {
	count uint64
	sum   float64
}

// Folder averages per-query sums over runs of consecutive snapshots that
// share a grouping key. A Folder is not safe for concurrent use.
type Folder struct {
	engine *Engine
	key    KeyFunc

	open  bool
	group string
	slots []accumulator
}

// NewFolder returns a new Folder. A nil key defaults to ByTime.
func NewFolder(engine *Engine, key KeyFunc) *Folder {
	if key == nil {
		key = ByTime()
	}
	return &Folder{
		engine: engine,
		key:    key,
		slots:  make([]accumulator, len(engine.queries)),
	}
}

// Add folds the snapshot into the open group. If the snapshot's key differs
// from the open group's key, the open group is closed first and its mean
// values are returned.
func (f *Folder) Add(s *top.Snapshot) ([]Result, error) {
	key, err := f.key(s)
	if err != nil {
		return nil, err
	}
	sums, err := f.engine.Evaluate(s)
	if err != nil {
		return nil, err
	}

	var closed []Result
	if f.open && key != f.group {
		closed = f.close()
	}
	if !f.open {
		f.open = true
		f.group = key
	}
	for i, result := range sums {
		f.slots[i].count++
		f.slots[i].sum += result.Value
	}
	return closed, nil
}

// Flush closes the open group and returns its mean values.
// It returns nil if no group is open.
func (f *Folder) Flush() []Result {
	if !f.open {
		return nil
	}
	return f.close()
}

func (f *Folder) close() []Result {
	var results []Result
	for i, q := range f.engine.queries {
		slot := f.slots[i]
		if slot.count > 0 {
			results = append(results, Result{
				Key:   f.group,
				Query: q,
				Value: slot.sum / float64(slot.count),
			})
		}
		f.slots[i] = accumulator{}
	}
	f.open = false
	f.group = ""
	return results
}
