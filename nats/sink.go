// Package nats provides a sink connector that publishes query result lines
// to a NATS subject.
package nats

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/reugn/topgrep"
)

// publisher is the subset of *nats.Conn used by the Sink.
type publisher interface {
	Publish(subject string, data []byte) error
	Drain() error
}

var _ publisher = (*nats.Conn)(nil)

// Opt is a functional option type used to configure a Sink.
type Opt func(*Sink)

// WithLogger configures the Sink with a custom logger.
// If not specified, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Opt {
	return func(s *Sink) {
		s.logger = logger
	}
}

// WithErrorHandler configures a function that receives the publish error
// that terminated the Sink.
func WithErrorHandler(errorHandler func(error)) Opt {
	return func(s *Sink) {
		s.errorHandler = errorHandler
	}
}

// WithContextCancel configures a function that is called to stop the
// upstream source when publishing fails.
func WithContextCancel(cancel func()) Opt {
	return func(s *Sink) {
		s.cancel = cancel
	}
}

// Sink represents a NATS sink connector. Every stream element is published
// as a single message to the configured subject.
type Sink struct {
	conn    publisher
	subject string
	in      chan any
	done    chan struct{}

	logger       *slog.Logger
	errorHandler func(error)
	cancel       func()
}

var _ topgrep.Sink = (*Sink)(nil)

// NewSink connects to the NATS server at url and returns a new Sink
// publishing to subject.
func NewSink(url, subject string, opts ...Opt) (*Sink, error) {
	if subject == "" {
		return nil, errors.New("subject is empty")
	}
	conn, err := nats.Connect(url, nats.Name("topgrep"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return newSink(conn, subject, opts...), nil
}

func newSink(conn publisher, subject string, opts ...Opt) *Sink {
	sink := &Sink{
		conn:         conn,
		subject:      subject,
		in:           make(chan any),
		done:         make(chan struct{}),
		logger:       slog.Default(),
		errorHandler: func(error) {},
		cancel:       func() {},
	}

	// apply functional options to configure the sink
	for _, opt := range opts {
		opt(sink)
	}

	sink.logger = sink.logger.With(
		slog.Group("connector",
			slog.String("name", "nats"),
			slog.String("type", "sink"),
			slog.String("subject", subject)))

	// asynchronously process stream data
	go sink.process()

	return sink
}

func (s *Sink) process() {
	defer close(s.done)

	for msg := range s.in {
		var data []byte
		switch m := msg.(type) {
		case []byte:
			data = m
		case string:
			data = []byte(m)
		case fmt.Stringer:
			data = []byte(m.String())
		default:
			s.logger.Warn("Unsupported message type",
				slog.String("type", fmt.Sprintf("%T", m)))
			continue
		}

		if err := s.conn.Publish(s.subject, data); err != nil {
			s.logger.Error("Failed to publish message", slog.Any("error", err))
			s.errorHandler(fmt.Errorf("publish to %s: %w", s.subject, err))
			s.cancel()
			// discard the remaining elements
			for range s.in {
			}
		}
	}

	s.logger.Info("Closing connection")
	if err := s.conn.Drain(); err != nil {
		s.logger.Error("Failed to drain connection", slog.Any("error", err))
	}
}

// In returns the input channel of the Sink connector.
func (s *Sink) In() chan<- any {
	return s.in
}

// AwaitCompletion blocks until the Sink has published all received data and
// drained its connection.
func (s *Sink) AwaitCompletion() {
	<-s.done
}
