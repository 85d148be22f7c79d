package extension_test

import (
	"bytes"
	"context"
	"testing"

	ext "github.com/reugn/topgrep/extension"
	"github.com/reugn/topgrep/flow"
	"github.com/reugn/topgrep/internal/assert"
)

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

type stringer string

func (s stringer) String() string {
	return string(s)
}

func TestWriterSink(t *testing.T) {
	in := make(chan any, 5)
	in <- "12:00:01\t42\t3.5"
	in <- []byte("bytes")
	in <- stringer("stringer")
	in <- 42 // discarded
	in <- ""
	close(in)

	buffer := &bufferCloser{}
	sink, err := ext.NewWriterSink(buffer)
	assert.NoError(t, err)

	ext.NewChanSource(in).
		Via(flow.NewPassThrough()).
		To(sink)

	assert.Equal(t, "12:00:01\t42\t3.5\nbytes\nstringer\n\n", buffer.String())
	assert.Equal(t, true, buffer.closed)
}

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errWrite
}

func (w *failingWriter) Close() error {
	return nil
}

func TestWriterSink_WriteError(t *testing.T) {
	in := make(chan any, 3)
	in <- "a"
	in <- "b"
	in <- "c"
	close(in)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled error
	writer := &failingWriter{}
	sink, err := ext.NewWriterSink(writer,
		ext.WithContext(ctx),
		ext.WithContextCancel(cancel),
		ext.WithErrorHandler(func(err error) { handled = err }))
	assert.NoError(t, err)

	ext.NewChanSource(in).
		Via(flow.NewPassThrough()).
		To(sink)

	assert.Equal(t, 1, writer.writes)
	assert.ErrorIs(t, handled, errWrite)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestNewWriterSink_NilWriter(t *testing.T) {
	_, err := ext.NewWriterSink(nil)
	assert.ErrorContains(t, err, "writer is nil")
}
