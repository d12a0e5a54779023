package streampublish

import (
	"errors"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

var (
	// ErrFaulted is returned by Deliver while the sticky write fault is raised.
	// ResetFault (or a flush) clears it.
	ErrFaulted = errors.New("stream-publish: sink faulted")

	// ErrNotStarted is returned by Deliver before Start
	ErrNotStarted = errors.New("stream-publish: sink not started")

	// ErrAlreadyStarted is returned by Start on a running sink
	ErrAlreadyStarted = errors.New("stream-publish: sink already started")

	// ErrUnusable marks a connection that can no longer carry data
	ErrUnusable = rtmp.ErrUnusable

	// ErrOptionRejected marks a connection option the transport could not apply
	ErrOptionRejected = rtmp.ErrOptionRejected

	// ErrNotConnected marks a write on a connection that is gone
	ErrNotConnected = rtmp.ErrNotConnected
)

type (
	// SetupError reports a missing or invalid URI for the active endpoint
	SetupError = rtmp.SetupError
	// ConnectError reports a failed connect attempt
	ConnectError = rtmp.ConnectError
	// WriteError reports a failed write; Hard marks a fatal one
	WriteError = rtmp.WriteError
)

// Reasons carried by SetupError and ConnectError
const (
	ReasonMissingURI     = rtmp.ReasonMissingURI
	ReasonInvalidURI     = rtmp.ReasonInvalidURI
	ReasonRefused        = rtmp.ReasonRefused
	ReasonOptionRejected = rtmp.ReasonOptionRejected
)
