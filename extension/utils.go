package extension

// drainChan discards all remaining elements of the channel.
func drainChan(ch <-chan any) {
	for range ch {
	}
}
