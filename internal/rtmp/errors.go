package rtmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SetupReason tells why a connection could not be prepared
type SetupReason int

const (
	// ReasonMissingURI means the active role has no URI configured
	ReasonMissingURI SetupReason = iota
	// ReasonInvalidURI means the active URI failed validation
	ReasonInvalidURI
)

// SetupError is returned by Manager.Start. It is always fatal.
type SetupError struct {
	Reason SetupReason
	Role   string
	URI    string
	Err    error
}

func (e *SetupError) Error() string {
	if e.Reason == ReasonMissingURI {
		return fmt.Sprintf("rtmp: no %s uri configured", e.Role)
	}
	return fmt.Sprintf("rtmp: invalid %s uri %q: %v", e.Role, e.URI, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// ConnectReason tells why a connection could not be opened
type ConnectReason int

const (
	// ReasonRefused means connect or stream negotiation failed
	ReasonRefused ConnectReason = iota
	// ReasonOptionRejected means a connection option could not be applied
	ReasonOptionRejected
)

// ConnectError is returned by Manager.Open
type ConnectError struct {
	Reason ConnectReason
	URI    string
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Reason == ReasonOptionRejected {
		return fmt.Sprintf("rtmp: options rejected for %s: %v", e.URI, e.Err)
	}
	return fmt.Sprintf("rtmp: connect to %s refused: %v", e.URI, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// WriteError is returned by Manager.Write. Hard is set when the transport
// reported the connection as unusable.
type WriteError struct {
	Hard bool
	Err  error
}

func (e *WriteError) Error() string {
	if e.Hard {
		return fmt.Sprintf("rtmp: fatal write failure: %v", e.Err)
	}
	return fmt.Sprintf("rtmp: write failed: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ErrorCategory represents the classification of transport errors for telemetry
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates network-related failures (connection, timeout, DNS)
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryProtocol indicates RTMP/FLV level failures (handshake, publish, bad tags)
	ErrCategoryProtocol
	// ErrCategoryAuth indicates the server refused the stream key or credentials
	ErrCategoryAuth
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryProtocol:
		return "protocol"
	case ErrCategoryAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// ClassifyError categorizes a transport error for telemetry.
//
// Typed errors are checked first; the rest is matched on message keywords
// because RTMP client libraries mostly report plain strings.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryUnknown
	}

	if errors.Is(err, ErrUnusable) || errors.Is(err, ErrOptionRejected) {
		return ErrCategoryProtocol
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotConnected) {
		return ErrCategoryNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrCategoryNetwork
	}

	msg := strings.ToLower(err.Error())

	// Auth first: publish rejections often also mention "connection"
	if containsAny(msg, authKeywords) {
		return ErrCategoryAuth
	}
	if containsAny(msg, protocolKeywords) {
		return ErrCategoryProtocol
	}
	if containsAny(msg, networkKeywords) {
		return ErrCategoryNetwork
	}
	return ErrCategoryUnknown
}

var authKeywords = []string{
	"unauthorized",
	"forbidden",
	"badname",
	"publish.rejected",
	"authentication",
	"stream key",
}

var protocolKeywords = []string{
	"handshake",
	"chunk",
	"amf",
	"flv",
	"onstatus",
	"publish",
}

var networkKeywords = []string{
	"connection",
	"timeout",
	"refused",
	"reset",
	"broken pipe",
	"eof",
	"unreachable",
	"no such host",
	"dns",
	"dial",
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
