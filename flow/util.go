package flow

import (
	"github.com/reugn/topgrep"
)

// DoStream streams data from the outlet to inlet.
func DoStream(outlet topgrep.Outlet, inlet topgrep.Inlet) {
	go func() {
		for element := range outlet.Out() {
			inlet.In() <- element
		}

		close(inlet.In())
	}()
}

// FanOut creates a number of identical flows from the single outlet.
// This can be useful when writing to multiple sinks is required.
// Every element is delivered to all flows before the next one is read, so a
// slow flow holds back the others.
func FanOut(outlet topgrep.Outlet, magnitude int) []topgrep.Flow {
	out := make([]topgrep.Flow, magnitude)
	for i := 0; i < magnitude; i++ {
		out[i] = NewPassThrough()
	}

	go func() {
		for element := range outlet.Out() {
			for _, flow := range out {
				flow.In() <- element
			}
		}
		for _, flow := range out {
			close(flow.In())
		}
	}()

	return out
}
