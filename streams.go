// Package topgrep defines the stream ports used to move top snapshots and
// query results between the reader, the query stages and the output sinks.
package topgrep

// Inlet represents a type that exposes one open input.
type Inlet interface {
	// In returns the input channel. Closing it signals the end of the stream.
	In() chan<- any
}

// Outlet represents a type that exposes one open output.
type Outlet interface {
	// Out returns the output channel.
	Out() <-chan any
}

// Source represents a set of stream processing steps that has one open output.
// The snapshot reader connector is the only Source in a topgrep run.
type Source interface {
	Outlet
	Via(Flow) Flow
}

// Flow represents a set of stream processing steps that has one open input
// and one open output.
type Flow interface {
	Inlet
	Outlet
	Via(Flow) Flow
	To(Sink)
}

// Sink represents a set of stream processing steps that has one open input.
type Sink interface {
	Inlet
	// AwaitCompletion blocks until the Sink has written every element it
	// received and released its resources.
	AwaitCompletion()
}
