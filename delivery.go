package streampublish

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

// Deliver hands one chunk to the sink
//
// Behavior by phase:
//   - Steady: the chunk is written (joined with the pending header, if any)
//   - AwaitingFirstChunk / Recovering: a connect is attempted when the retry
//     window allows it, otherwise the chunk is dropped and nil is returned
//
// Returns an error only for a SetupError, a fatal ConnectError (option
// rejected or reconnection disabled) or a raised sticky fault (ErrFaulted).
func (s *RTMPSink) Deliver(ctx context.Context, chunk Chunk) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.faulted.Load() {
		return ErrFaulted
	}
	if s.resetRequested.Swap(false) && s.phase != PhaseSteady {
		s.window.ForceRetryNow = true
	}

	s.cache.Observe(byte(chunk.Type), chunk.Data, s.state == StateConnected)

	if s.phase == PhaseSteady {
		return s.write(ctx, chunk)
	}
	return s.reconnect(ctx, chunk)
}

// reconnect runs one connect attempt if the retry window is open
func (s *RTMPSink) reconnect(ctx context.Context, chunk Chunk) error {
	cfg := s.Config()
	s.window.Delay = cfg.ReconnectionDelay

	if s.state == StateError {
		s.window.Observe(chunk.Timestamp)
	}
	if !s.window.Eligible() {
		s.drop(chunk)
		return nil
	}
	s.window.Consume()

	if s.state == StateError || !s.conn.Started() {
		s.conn.Close()
		s.selector.SetURIs(cfg.PrimaryURI, cfg.BackupURI)
		if s.state == StateError {
			s.selector.Toggle()
		}
		if err := s.conn.Start(s.selector); err != nil {
			s.window.ForceRetryNow = true
			s.drop(chunk)
			s.logger.Error("stream-publish: cannot prepare connection", "error", err)
			return fmt.Errorf("stream-publish: %w", err)
		}
		s.window.Restarted(chunk.Timestamp)
		s.activeURI.Store(s.conn.URI())
	}

	if !s.conn.IsOpen() {
		if err := s.conn.Open(ctx, cfg.transportOptions()); err != nil {
			return s.connectFailed(chunk, err)
		}
	}
	return s.connected(ctx, chunk)
}

func (s *RTMPSink) connectFailed(chunk Chunk, err error) error {
	uri := s.conn.URI()
	s.conn.Close()
	s.state = StateError
	s.phase = PhaseRecovering
	s.isConnected.Store(false)
	s.window.MarkDisconnected(chunk.Timestamp, false)
	atomic.AddUint32(&s.connectFailures, 1)
	category := s.recordError(err)

	var connErr *rtmp.ConnectError
	if errors.As(err, &connErr) && connErr.Reason == rtmp.ReasonOptionRejected {
		s.faulted.Store(true)
		s.logger.Error("stream-publish: connection option rejected",
			"uri", rtmp.StreamURL(uri),
			"error", err,
		)
		return fmt.Errorf("stream-publish: %w", err)
	}

	if s.window.RetryDisabled() {
		s.window.ForceRetryNow = true
		s.notifier.attemptFailed()
		s.logger.Error("stream-publish: connect failed, reconnection disabled",
			"uri", rtmp.StreamURL(uri),
			"error", err,
			"category", category.String(),
		)
		return fmt.Errorf("stream-publish: reconnection disabled: %w", err)
	}

	s.logger.Warn("stream-publish: connect failed, will retry",
		"uri", rtmp.StreamURL(uri),
		"error", err,
		"category", category.String(),
		"timestamp", chunk.Timestamp,
		"reconnection_delay", s.window.Delay,
	)
	s.notifier.connectFailed(chunk.Timestamp, rtmp.StreamURL(uri), s.sessionID)
	s.drop(chunk)
	return nil
}

// connected primes the new connection with cached metadata and keeps chunk
// as the pending header for the next write.
func (s *RTMPSink) connected(ctx context.Context, chunk Chunk) error {
	s.state = StateConnected
	if s.sessionID != "" {
		atomic.AddUint32(&s.reconnects, 1)
	}
	s.sessionID = uuid.NewString()
	s.isConnected.Store(true)
	atomic.AddUint32(&s.connects, 1)

	uri := rtmp.StreamURL(s.conn.URI())
	s.logger.Info("stream-publish: connected",
		"uri", uri,
		"role", s.conn.Role().String(),
		"session_id", s.sessionID,
		"timestamp", chunk.Timestamp,
	)
	s.notifier.connected(chunk.Timestamp, uri, s.sessionID)

	err := s.cache.Replay(func(p []byte) error {
		if err := s.conn.Write(ctx, p); err != nil {
			return err
		}
		atomic.AddUint64(&s.bytesSent, uint64(len(p)))
		return nil
	})
	if err != nil {
		return s.writeFailed(chunk, err)
	}

	s.pendingHeader = append([]byte(nil), chunk.Data...)
	s.phase = PhaseSteady
	return nil
}

// write sends chunk, joined with the pending header when one is held
func (s *RTMPSink) write(ctx context.Context, chunk Chunk) error {
	payload := chunk.Data
	if s.pendingHeader != nil {
		payload = make([]byte, 0, len(s.pendingHeader)+len(chunk.Data))
		payload = append(payload, s.pendingHeader...)
		payload = append(payload, chunk.Data...)
		s.pendingHeader = nil
	}

	if err := s.conn.Write(ctx, payload); err != nil {
		return s.writeFailed(chunk, err)
	}

	s.notifier.writeSucceeded()
	atomic.AddUint64(&s.chunksDelivered, 1)
	atomic.AddUint64(&s.bytesSent, uint64(len(payload)))
	return nil
}

func (s *RTMPSink) writeFailed(chunk Chunk, err error) error {
	s.phase = PhaseRecovering
	s.state = StateError
	s.pendingHeader = nil
	s.isConnected.Store(false)
	s.window.MarkDisconnected(chunk.Timestamp, true)
	s.notifier.writeFailed()
	atomic.AddUint32(&s.writeFailures, 1)
	category := s.recordError(err)

	var writeErr *rtmp.WriteError
	if errors.As(err, &writeErr) && writeErr.Hard {
		s.faulted.Store(true)
		s.logger.Error("stream-publish: connection unusable, rejecting chunks until reset",
			"uri", rtmp.StreamURL(s.conn.URI()),
			"error", err,
			"category", category.String(),
			"session_id", s.sessionID,
		)
		return fmt.Errorf("%w: %w", ErrFaulted, err)
	}

	s.logger.Warn("stream-publish: write failed, reconnecting",
		"uri", rtmp.StreamURL(s.conn.URI()),
		"error", err,
		"category", category.String(),
		"timestamp", chunk.Timestamp,
		"session_id", s.sessionID,
	)
	return nil
}

func (s *RTMPSink) drop(chunk Chunk) {
	atomic.AddUint64(&s.chunksDropped, 1)
	s.logger.Debug("stream-publish: dropping chunk while disconnected",
		"timestamp", chunk.Timestamp,
		"type", chunk.Type.String(),
		"size_bytes", len(chunk.Data),
	)
}
