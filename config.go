package streampublish

import (
	"fmt"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/logging"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

const (
	// DefaultReconnectionDelay is the stream time to wait between connect attempts
	DefaultReconnectionDelay = 10 * time.Second
	// DefaultTCPTimeout bounds connect and write operations
	DefaultTCPTimeout = 3 * time.Second
	// MaxTCPTimeout is the largest accepted TCPTimeout
	MaxTCPTimeout = rtmp.MaxTCPTimeout
	// DefaultConnectionIdentifier is the client identifier sent to the server
	DefaultConnectionIdentifier = "stream-publish/1.0"
)

// Config contains the sink parameters.
//
// Durations are written as strings in YAML ("10s", "500ms").
type Config struct {
	// PrimaryURI is the main ingest endpoint (rtmp://host[:port]/app/stream)
	PrimaryURI string `yaml:"primary_uri"`
	// BackupURI is used in alternation with PrimaryURI after failures
	BackupURI string `yaml:"backup_uri"`
	// ReconnectionDelay is the stream time between reconnect attempts. Zero disables retries.
	ReconnectionDelay time.Duration `yaml:"reconnection_delay"`
	// TCPTimeout bounds connect and write operations. Zero means no timeout.
	TCPTimeout time.Duration `yaml:"tcp_timeout"`
	// ConnectionIdentifier is the client identifier (flashVer)
	ConnectionIdentifier string `yaml:"connection_identifier"`
	// LogLevel gates the sink's own log output (debug|info|warn|error)
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a configuration with default timings and no URIs
func DefaultConfig() Config {
	return Config{
		ReconnectionDelay:    DefaultReconnectionDelay,
		TCPTimeout:           DefaultTCPTimeout,
		ConnectionIdentifier: DefaultConnectionIdentifier,
		LogLevel:             "info",
	}
}

// Validate checks the configuration (fail-fast).
//
// At least one URI is required. Each configured URI must be a valid RTMP URI.
func (c Config) Validate() error {
	if c.PrimaryURI == "" && c.BackupURI == "" {
		return fmt.Errorf("stream-publish: primary or backup uri is required")
	}
	if c.PrimaryURI != "" {
		if err := rtmp.ValidateURI(c.PrimaryURI); err != nil {
			return fmt.Errorf("stream-publish: invalid primary uri: %w", err)
		}
	}
	if c.BackupURI != "" {
		if err := rtmp.ValidateURI(c.BackupURI); err != nil {
			return fmt.Errorf("stream-publish: invalid backup uri: %w", err)
		}
	}
	if c.ReconnectionDelay < 0 {
		return fmt.Errorf("stream-publish: invalid reconnection delay %v (must be >= 0)", c.ReconnectionDelay)
	}
	if err := rtmp.ValidateOptions(c.transportOptions()); err != nil {
		return fmt.Errorf("stream-publish: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("stream-publish: %w", err)
	}
	return nil
}

func (c Config) transportOptions() rtmp.Options {
	return rtmp.Options{
		Identifier: c.ConnectionIdentifier,
		Timeout:    c.TCPTimeout,
	}
}
