package flow

import (
	"github.com/reugn/topgrep"
)

// Accumulator groups a stream of elements. Add consumes an element and
// returns the output of any group it closes. Flush closes the open group at
// the end of the stream.
type Accumulator[T, R any] interface {
	Add(element T) []R
	Flush() []R
}

// Fold implements a grouping fold transformation on a data stream. Each
// inbound element is added to the Accumulator, and the elements of every
// closed group are emitted in order. When the input channel is closed, the
// remaining open group is flushed downstream.
//
// in  -- 1 -- 1 ---- 2 -- 2 -- 2 --- 3 --|
//
// [ ----------- Accumulator ----------- ]
//
// out -------------- 1' ------------ 2' 3'|
type Fold[T, R any] struct {
	accumulator Accumulator[T, R]
	in          chan any
	out         chan any
}

// Verify Fold satisfies the Flow interface.
var _ topgrep.Flow = (*Fold[any, any])(nil)

// NewFold returns a new Fold operator.
// T specifies the incoming element type, and the outgoing element type is R.
//
// accumulator is owned exclusively by the operator's goroutine and must not
// be used by the caller after the call.
func NewFold[T, R any](accumulator Accumulator[T, R]) *Fold[T, R] {
	foldFlow := &Fold[T, R]{
		accumulator: accumulator,
		in:          make(chan any),
		out:         make(chan any),
	}

	// start processing stream elements
	go foldFlow.stream()

	return foldFlow
}

// Via asynchronously streams data to the given Flow and returns it.
func (m *Fold[T, R]) Via(flow topgrep.Flow) topgrep.Flow {
	go m.transmit(flow)
	return flow
}

// To streams data to the given Sink and blocks until the Sink has completed
// processing all data.
func (m *Fold[T, R]) To(sink topgrep.Sink) {
	m.transmit(sink)
	sink.AwaitCompletion()
}

// Out returns the output channel of the Fold operator.
func (m *Fold[T, R]) Out() <-chan any {
	return m.out
}

// In returns the input channel of the Fold operator.
func (m *Fold[T, R]) In() chan<- any {
	return m.in
}

func (m *Fold[T, R]) transmit(inlet topgrep.Inlet) {
	for element := range m.Out() {
		inlet.In() <- element
	}
	close(inlet.In())
}

// stream adds the inbound elements to the accumulator sequentially, so the
// order of accumulation follows the order of the stream.
func (m *Fold[T, R]) stream() {
	for element := range m.in {
		m.emit(m.accumulator.Add(element.(T)))
	}
	m.emit(m.accumulator.Flush())
	close(m.out)
}

func (m *Fold[T, R]) emit(elements []R) {
	for _, element := range elements {
		m.out <- element
	}
}
