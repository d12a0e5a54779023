package rtmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/endpoint"
)

// Manager owns the transport connection for the endpoint chosen by a Selector.
//
// Not safe for concurrent use; the sink drives it from a single goroutine.
type Manager struct {
	transport Transport
	logger    *slog.Logger

	uri  string
	role endpoint.Role
	conn Conn
}

// NewManager creates a manager using transport for every connection
func NewManager(transport Transport, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{transport: transport, logger: logger}
}

// Start resolves and validates the active URI of sel.
func (m *Manager) Start(sel *endpoint.Selector) error {
	role := sel.Active()
	uri, ok := sel.ActiveURI()
	if !ok {
		return &SetupError{Reason: ReasonMissingURI, Role: role.String()}
	}
	if err := ValidateURI(uri); err != nil {
		return &SetupError{Reason: ReasonInvalidURI, Role: role.String(), URI: uri, Err: err}
	}

	m.uri = uri
	m.role = role

	m.logger.Debug("rtmp: connection prepared",
		"uri", uri,
		"role", role.String(),
	)
	return nil
}

// Started reports whether Start succeeded since the last Close
func (m *Manager) Started() bool {
	return m.uri != ""
}

// URI returns the URI prepared by Start
func (m *Manager) URI() string {
	return m.uri
}

// Role returns the endpoint role prepared by Start
func (m *Manager) Role() endpoint.Role {
	return m.role
}

// Open applies opts and connects to the prepared URI.
func (m *Manager) Open(ctx context.Context, opts Options) error {
	if m.uri == "" {
		return &SetupError{Reason: ReasonMissingURI, Role: m.role.String()}
	}

	if err := ValidateOptions(opts); err != nil {
		return &ConnectError{Reason: ReasonOptionRejected, URI: m.uri, Err: err}
	}

	conn, err := m.transport.Connect(ctx, m.uri, opts)
	if err != nil {
		reason := ReasonRefused
		if errors.Is(err, ErrOptionRejected) {
			reason = ReasonOptionRejected
		}
		return &ConnectError{Reason: reason, URI: m.uri, Err: err}
	}

	m.conn = conn
	m.logger.Debug("rtmp: connection opened",
		"uri", m.uri,
		"role", m.role.String(),
		"identifier", opts.Identifier,
		"timeout", opts.Timeout,
	)
	return nil
}

// IsOpen reports whether the connection is established and alive
func (m *Manager) IsOpen() bool {
	return m.conn != nil && m.conn.IsConnected()
}

// Write sends p over the open connection
func (m *Manager) Write(ctx context.Context, p []byte) error {
	if m.conn == nil {
		return &WriteError{Err: ErrNotConnected}
	}
	if _, err := m.conn.Write(ctx, p); err != nil {
		return &WriteError{Hard: errors.Is(err, ErrUnusable), Err: err}
	}
	return nil
}

// Close releases the connection and the prepared URI. Idempotent.
func (m *Manager) Close() {
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Debug("rtmp: close failed", "uri", m.uri, "error", err)
		}
		m.conn = nil
	}
	m.uri = ""
}

// String describes the current target for logs
func (m *Manager) String() string {
	if m.uri == "" {
		return "<closed>"
	}
	return fmt.Sprintf("%s (%s)", m.uri, m.role)
}
