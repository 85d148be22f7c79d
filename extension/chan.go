package extension

import (
	"github.com/reugn/topgrep"
	"github.com/reugn/topgrep/flow"
)

// ChanSource represents an inbound connector that streams items from a channel.
type ChanSource struct {
	in chan any
}

var _ topgrep.Source = (*ChanSource)(nil)

// NewChanSource returns a new ChanSource connector.
func NewChanSource(in chan any) *ChanSource {
	return &ChanSource{
		in: in,
	}
}

// Via asynchronously streams data to the given Flow and returns it.
func (cs *ChanSource) Via(operator topgrep.Flow) topgrep.Flow {
	flow.DoStream(cs, operator)
	return operator
}

// Out returns the output channel of the ChanSource connector.
func (cs *ChanSource) Out() <-chan any {
	return cs.in
}

// ChanSink represents an outbound connector that sends items to a channel.
// The stream closes the channel once all elements have been delivered.
type ChanSink struct {
	Out chan any
}

var _ topgrep.Sink = (*ChanSink)(nil)

// NewChanSink returns a new ChanSink connector.
func NewChanSink(out chan any) *ChanSink {
	return &ChanSink{
		Out: out,
	}
}

// In returns the input channel of the ChanSink connector.
func (ch *ChanSink) In() chan<- any {
	return ch.Out
}

// AwaitCompletion is a no-op for the ChanSink.
func (ch *ChanSink) AwaitCompletion() {}
