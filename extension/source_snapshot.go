package extension

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/reugn/topgrep"
	"github.com/reugn/topgrep/flow"
	"github.com/reugn/topgrep/top"
)

// SnapshotSource represents an inbound connector that reads top batch output
// from an io.ReadCloser and emits one *top.Snapshot per block.
type SnapshotSource struct {
	reader io.ReadCloser
	parser *top.Reader
	out    chan any

	mu    sync.Mutex
	stats top.Stats

	opts options
}

var _ topgrep.Source = (*SnapshotSource)(nil)

// NewSnapshotSource returns a new SnapshotSource connector.
// The reader is closed when the stream ends.
func NewSnapshotSource(reader io.ReadCloser, patterns *top.Patterns,
	opts ...Opt) (*SnapshotSource, error) {
	if reader == nil {
		return nil, errors.New("reader is nil")
	}
	if patterns == nil {
		return nil, errors.New("patterns is nil")
	}

	snapshotSource := &SnapshotSource{
		reader: reader,
		out:    make(chan any),
		opts:   makeDefaultOptions(),
	}

	// apply functional options to configure the source
	for _, opt := range opts {
		opt(&snapshotSource.opts)
	}

	snapshotSource.opts.logger = snapshotSource.opts.logger.With(
		slog.Group("connector",
			slog.String("name", "snapshot"),
			slog.String("type", "source")))
	snapshotSource.parser = top.NewReader(reader, patterns,
		top.WithLogger(snapshotSource.opts.logger))

	// asynchronously send snapshots downstream
	go snapshotSource.process()

	return snapshotSource, nil
}

// process reads snapshots from the underlying reader and sends them to the
// output channel until the end of the stream, a read error or context
// cancellation.
func (s *SnapshotSource) process() {
	defer func() {
		if err := s.reader.Close(); err != nil {
			s.opts.logger.Error("Failed to close reader", slog.Any("error", err))
		}
		s.opts.logger.Info("Closed reader")
		close(s.out)
	}()

	for {
		select {
		case <-s.opts.ctx.Done():
			s.opts.logger.Info("Context canceled", slog.Any("error", s.opts.ctx.Err()))
			return
		default:
			snapshot, err := s.parser.Read()
			s.updateStats()
			if err != nil {
				if errors.Is(err, io.EOF) {
					s.opts.logger.Info("Reader finished")
				} else {
					s.opts.logger.Error("Failed to read snapshot", slog.Any("error", err))
					s.opts.errorHandler(err)
				}
				return
			}

			s.emitElement(snapshot)
		}
	}
}

// emitElement sends the snapshot downstream unless the context is canceled.
func (s *SnapshotSource) emitElement(snapshot *top.Snapshot) {
	select {
	case s.out <- snapshot:
	case <-s.opts.ctx.Done():
	}
}

func (s *SnapshotSource) updateStats() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = s.parser.Stats()
}

// Stats returns the reader counters accumulated so far.
func (s *SnapshotSource) Stats() top.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Via asynchronously streams data to the given Flow and returns it.
func (s *SnapshotSource) Via(operator topgrep.Flow) topgrep.Flow {
	flow.DoStream(s, operator)
	return operator
}

// Out returns the output channel of the SnapshotSource connector.
func (s *SnapshotSource) Out() <-chan any {
	return s.out
}
