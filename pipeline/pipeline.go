// Package pipeline connects the snapshot source, the query stage and the
// output sinks of a topgrep run.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/reugn/topgrep"
	ext "github.com/reugn/topgrep/extension"
	"github.com/reugn/topgrep/flow"
	"github.com/reugn/topgrep/query"
	"github.com/reugn/topgrep/top"
)

// Observer receives run statistics as the pipeline advances.
type Observer interface {
	ObserveReader(stats top.Stats)
	ObserveResult(result query.Result)
}

type nopObserver struct{}

func (nopObserver) ObserveReader(top.Stats)    {}
func (nopObserver) ObserveResult(query.Result) {}

// Config holds the settings of a pipeline run.
type Config struct {
	// Queries are evaluated in order; duplicates are allowed.
	Queries []query.Query
	// Fold enables averaging over consecutive snapshots with equal keys.
	Fold bool
	// Key computes the fold grouping key. Defaults to query.ByTime.
	Key query.KeyFunc
	// Patterns are the compiled top expressions. Defaults to top.NewPatterns.
	Patterns *top.Patterns
	Logger   *slog.Logger
	Observer Observer
}

// Pipeline runs a single topgrep stream. The first fatal error is recorded
// and cancels the pipeline context, which stops the source from reading
// further snapshots.
type Pipeline struct {
	config Config
	engine *query.Engine
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
	// readErr is the error that ended the input. It takes effect once every
	// snapshot read before it has been evaluated.
	readErr error

	source *ext.SnapshotSource
}

// New returns a new Pipeline derived from ctx.
func New(ctx context.Context, config Config) *Pipeline {
	if config.Key == nil {
		config.Key = query.ByTime()
	}
	if config.Patterns == nil {
		config.Patterns = top.NewPatterns()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pipeline{
		config: config,
		engine: query.NewEngine(config.Queries...),
		logger: config.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Fail records err as the pipeline error if none has been recorded yet, and
// cancels the pipeline context.
func (p *Pipeline) Fail(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.cancel()
}

// failRead records the error that terminated the snapshot source. The
// source closes its output right after, so the stages see the end of the
// stream only once the earlier snapshots have been processed.
func (p *Pipeline) failRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr == nil {
		p.readErr = err
	}
}

// failed reports whether the stream must stop emitting results, either
// because of a recorded error or because the input ended with one.
func (p *Pipeline) failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err != nil || p.readErr != nil
}

// Err returns the first recorded error.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stats returns the reader counters of the run.
func (p *Pipeline) Stats() top.Stats {
	if p.source == nil {
		return top.Stats{}
	}
	return p.source.Stats()
}

// Run reads top output from input and writes one line per result to every
// sink. Sinks should report their errors through Fail. Run blocks until all
// sinks have completed and returns the first recorded error.
func (p *Pipeline) Run(input io.ReadCloser, sinks ...topgrep.Sink) error {
	defer p.cancel()
	if len(sinks) == 0 {
		return errors.New("no sinks")
	}

	source, err := ext.NewSnapshotSource(input, p.config.Patterns,
		ext.WithContext(p.ctx),
		ext.WithLogger(p.logger),
		ext.WithErrorHandler(p.failRead))
	if err != nil {
		return err
	}
	p.source = source

	var stage topgrep.Flow
	if p.config.Fold {
		stage = flow.NewFold[*top.Snapshot, query.Result](&folding{
			pipeline: p,
			folder:   query.NewFolder(p.engine, p.config.Key),
		})
	} else {
		stage = flow.NewFlatMap(p.evaluate, 1)
	}
	lines := source.
		Via(stage).
		Via(flow.NewMap(p.render, 1))

	if len(sinks) == 1 {
		lines.To(sinks[0])
	} else {
		var wg sync.WaitGroup
		for i, branch := range flow.FanOut(lines, len(sinks)) {
			wg.Add(1)
			go func(branch topgrep.Flow, sink topgrep.Sink) {
				defer wg.Done()
				branch.To(sink)
			}(branch, sinks[i])
		}
		wg.Wait()
	}

	// a read error follows every snapshot before it in stream order
	p.mu.Lock()
	readErr := p.readErr
	p.mu.Unlock()
	if readErr != nil {
		p.Fail(readErr)
	}

	stats := source.Stats()
	p.config.Observer.ObserveReader(stats)
	p.logger.Info("Pipeline finished",
		slog.Uint64("snapshots", stats.Snapshots),
		slog.Uint64("rows", stats.Rows),
		slog.Uint64("dropped_rows", stats.DroppedRows))

	return p.Err()
}

// evaluate maps a snapshot to its per-query results.
func (p *Pipeline) evaluate(snapshot *top.Snapshot) []query.Result {
	p.config.Observer.ObserveReader(p.source.Stats())
	if p.Err() != nil {
		return nil
	}
	results, err := p.engine.Evaluate(snapshot)
	if err != nil {
		p.logger.Error("Failed to evaluate snapshot", slog.Any("error", err))
		p.Fail(err)
		return nil
	}
	return results
}

func (p *Pipeline) render(result query.Result) string {
	p.config.Observer.ObserveResult(result)
	return result.String()
}

// folding adapts a query.Folder to the fold stage. After a failure it stops
// folding and the open group is discarded.
type folding struct {
	pipeline *Pipeline
	folder   *query.Folder
}

var _ flow.Accumulator[*top.Snapshot, query.Result] = (*folding)(nil)

func (f *folding) Add(snapshot *top.Snapshot) []query.Result {
	f.pipeline.config.Observer.ObserveReader(f.pipeline.source.Stats())
	if f.pipeline.Err() != nil {
		return nil
	}
	results, err := f.folder.Add(snapshot)
	if err != nil {
		f.pipeline.logger.Error("Failed to fold snapshot", slog.Any("error", err))
		f.pipeline.Fail(err)
		return nil
	}
	return results
}

func (f *folding) Flush() []query.Result {
	if f.pipeline.failed() {
		return nil
	}
	return f.folder.Flush()
}
