package rtmp

import "time"

// RetryWindow decides when the next reconnect attempt may happen.
//
// Times are stream running times carried by the chunks, not wall clock: a
// stalled pipeline does not consume the reconnection delay.
type RetryWindow struct {
	// DisconnectedSince is the chunk time of the last failure (or successful restart)
	DisconnectedSince time.Duration
	// LastChunkTime is the time of the last chunk seen while in error
	LastChunkTime time.Duration
	// Delay is the minimum elapsed stream time between attempts
	Delay time.Duration
	// ForceRetryNow makes the next chunk attempt a connect regardless of Delay
	ForceRetryNow bool
}

// NewRetryWindow returns a window that allows an immediate first attempt
func NewRetryWindow(delay time.Duration) RetryWindow {
	return RetryWindow{Delay: delay, ForceRetryNow: true}
}

// Observe records the time of a chunk that arrived while disconnected
func (w *RetryWindow) Observe(ts time.Duration) {
	w.LastChunkTime = ts
}

// Eligible reports whether a connect attempt may be made now
func (w *RetryWindow) Eligible() bool {
	return w.ForceRetryNow || w.LastChunkTime-w.DisconnectedSince > w.Delay
}

// Consume clears the force flag; called once per attempt whatever its outcome
func (w *RetryWindow) Consume() {
	w.ForceRetryNow = false
}

// MarkDisconnected starts a new waiting period at ts
func (w *RetryWindow) MarkDisconnected(ts time.Duration, retryNow bool) {
	w.DisconnectedSince = ts
	w.LastChunkTime = ts
	w.ForceRetryNow = retryNow
}

// Restarted records that the connection was re-initialized at ts
func (w *RetryWindow) Restarted(ts time.Duration) {
	w.DisconnectedSince = ts
}

// RetryDisabled reports whether connect failures are fatal
func (w *RetryWindow) RetryDisabled() bool {
	return w.Delay <= 0
}

// Reset restores the initial state, keeping Delay
func (w *RetryWindow) Reset() {
	*w = NewRetryWindow(w.Delay)
}
