package rtmp

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"
)

// MaxTCPTimeout is the largest socket timeout accepted by the transport
const MaxTCPTimeout = 30 * time.Second

// maxIdentifierLen bounds the client identification string (AMF0 short string)
const maxIdentifierLen = 255

var (
	// ErrUnusable is returned by a Conn when a write can never succeed on it
	// (malformed payload, released session). The sink treats it as a hard fault.
	ErrUnusable = errors.New("rtmp: connection unusable")

	// ErrOptionRejected is returned when a connection option cannot be applied
	ErrOptionRejected = errors.New("rtmp: option rejected")

	// ErrNotConnected is returned when writing without an established connection
	ErrNotConnected = errors.New("rtmp: not connected")
)

// Options are applied to every new connection before connecting
type Options struct {
	// Identifier is the protocol-level client identification string (flashVer)
	Identifier string
	// Timeout bounds socket operations. Zero means blocking.
	Timeout time.Duration
}

// Transport opens publish connections to an RTMP server.
//
// Connect performs the TCP connect, the RTMP handshake and the publish
// negotiation; it returns only once the server accepted the stream.
type Transport interface {
	Connect(ctx context.Context, uri string, opts Options) (Conn, error)
}

// Conn is one established publish connection.
//
// Write receives FLV-formatted bytes (optionally starting with the FLV file
// header) containing whole tags. Close is idempotent.
type Conn interface {
	IsConnected() bool
	Write(ctx context.Context, p []byte) (int, error)
	Close() error
}

// ValidateOptions checks options before they are handed to a transport
func ValidateOptions(opts Options) error {
	if opts.Identifier == "" {
		return fmt.Errorf("%w: connection identifier is empty", ErrOptionRejected)
	}
	if len(opts.Identifier) > maxIdentifierLen {
		return fmt.Errorf("%w: connection identifier longer than %d bytes", ErrOptionRejected, maxIdentifierLen)
	}
	for _, r := range opts.Identifier {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: connection identifier contains %q", ErrOptionRejected, r)
		}
	}
	if opts.Timeout < 0 || opts.Timeout > MaxTCPTimeout {
		return fmt.Errorf("%w: tcp timeout %v (must be 0-%v)", ErrOptionRejected, opts.Timeout, MaxTCPTimeout)
	}
	return nil
}
