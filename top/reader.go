// Package top parses the batch-mode output of the top(1) process monitor into
// snapshots, one per sampling interval.
package top

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// ErrMissingColumnHeader is returned when a block ends before its process
// table column header line.
var ErrMissingColumnHeader = errors.New("missing column header")

const (
	headerExpr = `^top - (.+?) up`
	fieldsExpr = `\s+`
)

// Patterns holds the compiled expressions used to recognize a block header
// and to split table lines into fields. A single Patterns value is meant to
// be created at startup and shared by reference.
type Patterns struct {
	Header *regexp.Regexp
	Fields *regexp.Regexp
}

// NewPatterns compiles the block header and field separator expressions.
func NewPatterns() *Patterns {
	return &Patterns{
		Header: regexp.MustCompile(headerExpr),
		Fields: regexp.MustCompile(fieldsExpr),
	}
}

// Stats holds the counters collected by a Reader.
type Stats struct {
	Snapshots   uint64
	Rows        uint64
	DroppedRows uint64
}

// ReaderOpt is a functional option type used to configure a Reader.
type ReaderOpt func(*Reader)

// WithLogger configures the Reader with a custom logger.
// If not specified, slog.Default() will be used.
func WithLogger(logger *slog.Logger) ReaderOpt {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader reads Snapshots from a stream of top output.
// A Reader is not safe for concurrent use.
type Reader struct {
	reader   *bufio.Reader
	patterns *Patterns
	logger   *slog.Logger
	stats    Stats
	eof      bool
}

// NewReader returns a new Reader that reads from r using the given patterns.
// NewReader panics if patterns is nil.
func NewReader(r io.Reader, patterns *Patterns, opts ...ReaderOpt) *Reader {
	if patterns == nil {
		panic("patterns is nil")
	}
	reader := &Reader{
		reader:   bufio.NewReader(r),
		patterns: patterns,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Read returns the next Snapshot in the stream, resuming where the previous
// call stopped. It returns io.EOF when the stream holds no further block
// header. Any other error is fatal for the stream.
func (r *Reader) Read() (*Snapshot, error) {
	timestamp, err := r.scanHeader()
	if err != nil {
		return nil, err
	}

	// skip the summary area up to and including the first blank line
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok || line == "" {
			break
		}
	}

	header, ok, err := r.readLine()
	if err != nil {
		return nil, err
	}
	if !ok || header == "" {
		return nil, fmt.Errorf("block %q: %w", timestamp, ErrMissingColumnHeader)
	}
	columns := r.patterns.Fields.Split(header, -1)

	snapshot := NewSnapshot(timestamp, columns)
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok || line == "" {
			break
		}
		// the last column (the command line) may contain whitespace, so
		// everything past the second to last separator belongs to it
		fields := r.patterns.Fields.Split(line, len(columns))
		if !snapshot.appendRow(fields) {
			r.stats.DroppedRows++
			r.logger.Debug("Dropped malformed row",
				slog.String("time", timestamp),
				slog.Int("fields", len(fields)),
				slog.Int("columns", len(columns)),
				slog.String("line", line))
			continue
		}
		r.stats.Rows++
	}

	r.stats.Snapshots++
	return snapshot, nil
}

// scanHeader discards lines until a block header and returns its timestamp.
func (r *Reader) scanHeader() (string, error) {
	for {
		line, ok, err := r.readLine()
		if err != nil {
			return "", err
		}
		if !ok {
			return "", io.EOF
		}
		if match := r.patterns.Header.FindStringSubmatch(line); match != nil {
			return match[1], nil
		}
	}
}

// readLine returns the next line trimmed of surrounding whitespace. The
// second return value is false once the stream is exhausted.
func (r *Reader) readLine() (string, bool, error) {
	if r.eof {
		return "", false, nil
	}
	line, err := r.reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("read line: %w", err)
		}
		r.eof = true
		if line == "" {
			return "", false, nil
		}
	}
	return strings.TrimSpace(line), true, nil
}
