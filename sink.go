package streampublish

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/endpoint"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/logging"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/metadata"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

// RTMPSink implements ChunkSink on top of a Transport
type RTMPSink struct {
	// Configuration (setters apply on the next connect attempt)
	cfgMu    sync.Mutex
	cfg      Config
	logLevel slog.LevelVar

	logger    *slog.Logger
	transport Transport
	notifier  *eventNotifier

	// Delivery state, owned by whoever holds runMu
	runMu         sync.Mutex
	started       bool
	selector      *endpoint.Selector
	conn          *rtmp.Manager
	cache         *metadata.Cache
	window        rtmp.RetryWindow
	state         ConnectionState
	phase         Phase
	pendingHeader []byte
	sessionID     string

	// Fault flag, cleared from the flush path on another goroutine
	faulted        atomic.Bool
	resetRequested atomic.Bool

	// Statistics (atomic for thread-safety)
	chunksDelivered uint64
	chunksDropped   uint64
	bytesSent       uint64
	connects        uint32
	reconnects      uint32
	connectFailures uint32
	writeFailures   uint32
	eventsEmitted   uint64
	isConnected     atomic.Bool
	activeURI       atomic.Value
	startedAt       atomic.Int64

	// Error telemetry (atomic for thread-safety)
	errorsNetwork  uint64
	errorsProtocol uint64
	errorsAuth     uint64
	errorsUnknown  uint64
}

// Option customizes an RTMPSink
type Option func(*RTMPSink)

// WithLogger sets the base logger. The sink still applies Config.LogLevel on top.
func WithLogger(logger *slog.Logger) Option {
	return func(s *RTMPSink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets the event receivers. Several notifiers are fanned out in order.
func WithNotifier(notifiers ...Notifier) Option {
	return func(s *RTMPSink) {
		switch len(notifiers) {
		case 0:
		case 1:
			s.notifier.target = notifiers[0]
		default:
			s.notifier.target = MultiNotifier(notifiers)
		}
	}
}

// NewRTMPSink creates a sink with fail-fast validation
//
// Validates configuration at construction time:
//   - At least one of PrimaryURI / BackupURI must be set
//   - Every configured URI must be a valid RTMP URI
//   - ReconnectionDelay must not be negative
//   - TCPTimeout must be between 0 and 30s
//   - ConnectionIdentifier must be printable ASCII
func NewRTMPSink(cfg Config, transport Transport, opts ...Option) (*RTMPSink, error) {
	if transport == nil {
		return nil, fmt.Errorf("stream-publish: transport is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &RTMPSink{
		cfg:       cfg,
		transport: transport,
		logger:    slog.Default(),
		state:     StateIdle,
		phase:     PhaseAwaitingFirstChunk,
	}
	s.notifier = newEventNotifier(nil, &s.eventsEmitted)
	s.activeURI.Store("")

	for _, opt := range opts {
		opt(s)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	s.logLevel.Set(level)
	s.logger = slog.New(logging.NewLevelHandler(&s.logLevel, s.logger.Handler())).
		With("component", "stream-publish")

	s.selector = endpoint.NewSelector(cfg.PrimaryURI, cfg.BackupURI)
	s.conn = rtmp.NewManager(transport, s.logger)
	s.cache = metadata.NewCache(s.logger)
	s.window = rtmp.NewRetryWindow(cfg.ReconnectionDelay)

	s.logger.Info("stream-publish: sink created",
		"primary_uri", rtmp.StreamURL(cfg.PrimaryURI),
		"backup_uri", rtmp.StreamURL(cfg.BackupURI),
		"reconnection_delay", cfg.ReconnectionDelay,
		"tcp_timeout", cfg.TCPTimeout,
		"identifier", cfg.ConnectionIdentifier,
	)

	return s, nil
}

// Start prepares the sink for delivery
//
// This method:
//  1. Resolves the active endpoint (primary, or backup when it is the only one)
//  2. Validates its URI (SetupError on failure)
//  3. Clears any sticky fault left from a previous run
//
// No connection is made here; the first Deliver connects.
func (s *RTMPSink) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stream-publish: start: %w", err)
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	cfg := s.Config()
	s.selector.SetURIs(cfg.PrimaryURI, cfg.BackupURI)
	s.selector.Reset()
	s.window = rtmp.NewRetryWindow(cfg.ReconnectionDelay)

	if err := s.conn.Start(s.selector); err != nil {
		return fmt.Errorf("stream-publish: %w", err)
	}

	s.state = StateIdle
	s.phase = PhaseAwaitingFirstChunk
	s.faulted.Store(false)
	s.resetRequested.Store(false)
	s.activeURI.Store(s.conn.URI())
	s.started = true
	s.startedAt.Store(time.Now().UnixNano())

	s.logger.Info("stream-publish: sink started",
		"uri", rtmp.StreamURL(s.conn.URI()),
		"role", s.conn.Role().String(),
	)
	return nil
}

// Stop closes the connection and drops all cached state
//
// Idempotent - safe to call multiple times.
func (s *RTMPSink) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if !s.started {
		s.logger.Debug("stream-publish: sink not started, nothing to stop")
		return nil
	}

	s.conn.Close()
	s.cache.Clear()
	s.notifier.reset()
	s.selector.Reset()
	s.window.Reset()
	s.pendingHeader = nil
	s.sessionID = ""
	s.state = StateIdle
	s.phase = PhaseAwaitingFirstChunk
	s.isConnected.Store(false)
	s.started = false
	uptime := time.Since(time.Unix(0, s.startedAt.Swap(0)))

	s.logger.Info("stream-publish: sink stopped",
		"chunks_delivered", atomic.LoadUint64(&s.chunksDelivered),
		"chunks_dropped", atomic.LoadUint64(&s.chunksDropped),
		"connects", atomic.LoadUint32(&s.connects),
		"uptime", uptime,
	)
	return nil
}

// ResetFault clears the sticky write fault. Safe to call from any goroutine.
func (s *RTMPSink) ResetFault() {
	if !s.faulted.Swap(false) {
		return
	}
	s.resetRequested.Store(true)
	s.logger.Info("stream-publish: fault cleared")
}

// Faulted reports whether the sticky write fault is raised
func (s *RTMPSink) Faulted() bool {
	return s.faulted.Load()
}

// Stats returns current sink statistics
//
// Thread-safe - uses atomic operations for counters.
func (s *RTMPSink) Stats() SinkStats {
	uri, _ := s.activeURI.Load().(string)

	var uptime time.Duration
	if started := s.startedAt.Load(); started != 0 {
		uptime = time.Since(time.Unix(0, started))
	}

	return SinkStats{
		ChunksDelivered: atomic.LoadUint64(&s.chunksDelivered),
		ChunksDropped:   atomic.LoadUint64(&s.chunksDropped),
		BytesSent:       atomic.LoadUint64(&s.bytesSent),
		Connects:        atomic.LoadUint32(&s.connects),
		Reconnects:      atomic.LoadUint32(&s.reconnects),
		ConnectFailures: atomic.LoadUint32(&s.connectFailures),
		WriteFailures:   atomic.LoadUint32(&s.writeFailures),
		EventsEmitted:   atomic.LoadUint64(&s.eventsEmitted),
		ActiveURI:       rtmp.StreamURL(uri),
		IsConnected:     s.isConnected.Load(),
		Faulted:         s.faulted.Load(),
		Uptime:          uptime,
		ErrorsNetwork:   atomic.LoadUint64(&s.errorsNetwork),
		ErrorsProtocol:  atomic.LoadUint64(&s.errorsProtocol),
		ErrorsAuth:      atomic.LoadUint64(&s.errorsAuth),
		ErrorsUnknown:   atomic.LoadUint64(&s.errorsUnknown),
	}
}

// Config returns a copy of the current configuration
func (s *RTMPSink) Config() Config {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return s.cfg
}

// SetPrimaryURI changes the primary endpoint. Applies on the next connect attempt.
func (s *RTMPSink) SetPrimaryURI(uri string) error {
	return s.update("primary_uri", func(c *Config) { c.PrimaryURI = uri })
}

// SetBackupURI changes the backup endpoint. Empty removes it.
func (s *RTMPSink) SetBackupURI(uri string) error {
	return s.update("backup_uri", func(c *Config) { c.BackupURI = uri })
}

// SetReconnectionDelay changes the stream time between reconnect attempts
func (s *RTMPSink) SetReconnectionDelay(d time.Duration) error {
	return s.update("reconnection_delay", func(c *Config) { c.ReconnectionDelay = d })
}

// SetTCPTimeout changes the connect/write timeout (0-30s)
func (s *RTMPSink) SetTCPTimeout(d time.Duration) error {
	return s.update("tcp_timeout", func(c *Config) { c.TCPTimeout = d })
}

// SetConnectionIdentifier changes the client identifier sent on connect
func (s *RTMPSink) SetConnectionIdentifier(id string) error {
	return s.update("connection_identifier", func(c *Config) { c.ConnectionIdentifier = id })
}

// SetLogLevel changes the sink's log verbosity immediately
func (s *RTMPSink) SetLogLevel(level string) error {
	if err := s.update("log_level", func(c *Config) { c.LogLevel = level }); err != nil {
		return err
	}
	parsed, _ := logging.ParseLevel(level)
	s.logLevel.Set(parsed)
	return nil
}

// update validates the changed configuration before committing it (rollback on error)
func (s *RTMPSink) update(field string, apply func(*Config)) error {
	s.cfgMu.Lock()
	next := s.cfg
	apply(&next)
	if err := next.Validate(); err != nil {
		s.cfgMu.Unlock()
		return err
	}
	s.cfg = next
	s.cfgMu.Unlock()

	s.logger.Debug("stream-publish: configuration updated", "field", field)
	return nil
}

func (s *RTMPSink) recordError(err error) rtmp.ErrorCategory {
	category := rtmp.ClassifyError(err)
	switch category {
	case rtmp.ErrCategoryNetwork:
		atomic.AddUint64(&s.errorsNetwork, 1)
	case rtmp.ErrCategoryProtocol:
		atomic.AddUint64(&s.errorsProtocol, 1)
	case rtmp.ErrCategoryAuth:
		atomic.AddUint64(&s.errorsAuth, 1)
	default:
		atomic.AddUint64(&s.errorsUnknown, 1)
	}
	return category
}
