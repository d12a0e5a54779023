package streampublish

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// EventKind identifies a connection-health notification
type EventKind int

const (
	// EventDisconnected is sent once when a live connection is lost
	EventDisconnected EventKind = iota
	// EventReconnected is sent when a connection is re-established after EventDisconnected
	EventReconnected
	// EventBandwidthWarning is sent when a reconnect follows repeated write failures
	EventBandwidthWarning
)

// String returns the wire name of the event
func (k EventKind) String() string {
	switch k {
	case EventDisconnected:
		return "disconnected"
	case EventReconnected:
		return "reconnected"
	case EventBandwidthWarning:
		return "bandwidth"
	default:
		return "unknown"
	}
}

// Event is a connection-health notification
type Event struct {
	// Kind is the event type
	Kind EventKind
	// Timestamp is the stream running time of the chunk that triggered the event
	Timestamp time.Duration
	// URI is the endpoint involved
	URI string
	// SessionID identifies the connection the event belongs to
	SessionID string
	// EmittedAt is the wall-clock time of emission
	EmittedAt time.Time
}

// Notifier receives events. Notify is called on the delivery goroutine and
// must not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Event)

// Notify calls f(e)
func (f NotifierFunc) Notify(e Event) { f(e) }

// LogNotifier logs every event
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs e at warn level for disconnects and info otherwise
func (n LogNotifier) Notify(e Event) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if e.Kind != EventReconnected {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "stream-publish: event",
		"event", e.Kind.String(),
		"timestamp", e.Timestamp,
		"uri", e.URI,
		"session_id", e.SessionID,
	)
}

// MultiNotifier fans an event out to every notifier in order
type MultiNotifier []Notifier

// Notify forwards e to each notifier
func (m MultiNotifier) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

type failureKind int

const (
	failureNone failureKind = iota
	failureConnect
	failureWrite
)

// eventNotifier turns state transitions into events.
//
// Invariants: at most one EventDisconnected per outage; EventReconnected only
// after an EventDisconnected; EventDisconnected only once a connection has
// succeeded in this session. Driven from the delivery goroutine only.
type eventNotifier struct {
	target  Notifier
	emitted *uint64
	now     func() time.Time

	everConnected            bool
	disconnectedNotified     bool
	consecutiveWriteFailures uint32
	lastFailure              failureKind
}

func newEventNotifier(target Notifier, emitted *uint64) *eventNotifier {
	return &eventNotifier{target: target, emitted: emitted, now: time.Now}
}

// connectFailed records a failed connect attempt and emits EventDisconnected
// if this outage has not been reported yet.
func (n *eventNotifier) connectFailed(ts time.Duration, uri, sessionID string) {
	n.attemptFailed()
	n.lostConnection(ts, uri, sessionID)
}

// attemptFailed records a failed connect without reporting it. A failed
// connect ends any write failure streak.
func (n *eventNotifier) attemptFailed() {
	n.lastFailure = failureConnect
	n.consecutiveWriteFailures = 0
}

// writeFailed records a failed write
func (n *eventNotifier) writeFailed() {
	n.lastFailure = failureWrite
	n.consecutiveWriteFailures++
}

// writeSucceeded clears the write failure streak
func (n *eventNotifier) writeSucceeded() {
	n.consecutiveWriteFailures = 0
}

// connected records a successful connect and emits EventReconnected or
// EventBandwidthWarning.
func (n *eventNotifier) connected(ts time.Duration, uri, sessionID string) {
	n.everConnected = true

	switch {
	case n.disconnectedNotified:
		n.disconnectedNotified = false
		n.emit(EventReconnected, ts, uri, sessionID)
	case n.lastFailure == failureWrite && n.consecutiveWriteFailures >= 2:
		n.consecutiveWriteFailures = 0
		n.emit(EventBandwidthWarning, ts, uri, sessionID)
	}
	n.lastFailure = failureNone
}

func (n *eventNotifier) lostConnection(ts time.Duration, uri, sessionID string) {
	if !n.everConnected || n.disconnectedNotified {
		return
	}
	n.disconnectedNotified = true
	n.emit(EventDisconnected, ts, uri, sessionID)
}

func (n *eventNotifier) reset() {
	n.everConnected = false
	n.disconnectedNotified = false
	n.consecutiveWriteFailures = 0
	n.lastFailure = failureNone
}

func (n *eventNotifier) emit(kind EventKind, ts time.Duration, uri, sessionID string) {
	if n.emitted != nil {
		atomic.AddUint64(n.emitted, 1)
	}
	if n.target == nil {
		return
	}
	n.target.Notify(Event{
		Kind:      kind,
		Timestamp: ts,
		URI:       uri,
		SessionID: sessionID,
		EmittedAt: n.now(),
	})
}
