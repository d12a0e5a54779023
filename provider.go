package streampublish

import "context"

// ChunkSink defines the contract for continuous media delivery to a server
//
// Implementations must guarantee:
//   - Deliver() is called from one goroutine, in chunk arrival order
//   - Deliver() never returns an error for a chunk dropped while reconnecting
//   - Stop() is idempotent (safe to call multiple times)
//   - ResetFault() and Stats() are thread-safe (can be called from any goroutine)
//   - Configuration setters apply on the next connect attempt
type ChunkSink interface {
	// Start prepares the sink. It does not connect.
	//
	// The first Deliver() after Start makes the first connect attempt
	// immediately; later attempts are paced by the reconnection delay,
	// measured in chunk timestamps.
	//
	// Returns an error if:
	//   - No URI is configured for the active endpoint (SetupError)
	//   - The active URI is not a valid RTMP URI (SetupError)
	//   - The sink is already started (ErrAlreadyStarted)
	//
	// Example:
	//   sink, _ := NewRTMPSink(cfg, NewLALTransport(nil))
	//   if err := sink.Start(ctx); err != nil {
	//       log.Fatal(err)
	//   }
	//   defer sink.Stop()
	Start(ctx context.Context) error

	// Deliver sends one chunk, connecting or reconnecting as needed.
	//
	// This method blocks inline on connect and write, each bounded by the
	// configured TCP timeout. While disconnected, chunks that arrive before
	// the reconnection delay has elapsed are dropped and nil is returned so
	// the producer keeps streaming.
	//
	// After a successful (re)connect the cached stream header, video and
	// audio configuration chunks are replayed in that order, and the chunk
	// that triggered the connect is held back and written joined with the
	// next one.
	//
	// Returns an error if:
	//   - The active URI cannot be prepared (SetupError)
	//   - A connection option is rejected (ConnectError, sticky)
	//   - Connect fails and the reconnection delay is zero (ConnectError; the next chunk retries)
	//   - The connection became unusable (wraps ErrFaulted, sticky)
	//   - The fault is raised from an earlier chunk (ErrFaulted)
	Deliver(ctx context.Context, chunk Chunk) error

	// ResetFault clears the sticky fault so delivery can resume.
	//
	// Maps to a flush of the producing pipeline. The next Deliver()
	// reconnects immediately.
	ResetFault()

	// Stop closes the connection and drops cached metadata.
	//
	// Safe to call multiple times. If called when the sink is not
	// running, returns nil immediately.
	Stop() error

	// Stats returns current sink statistics.
	//
	// This method is thread-safe and can be called from any goroutine.
	Stats() SinkStats
}

var _ ChunkSink = (*RTMPSink)(nil)
