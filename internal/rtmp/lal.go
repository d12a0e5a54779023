package rtmp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/q191201771/lal/pkg/remux"
	lalrtmp "github.com/q191201771/lal/pkg/rtmp"
)

// LALTransport publishes through lal's RTMP push session.
//
// lal performs the handshake, connect/createStream/publish and chunking; this
// adapter feeds it FLV tags. Limits of the lal client:
//   - only rtmp:// and rtmps:// are dialled; other RTMP schemes are rejected
//     with ErrOptionRejected
//   - lal advertises its own flashVer in the connect command, so
//     Options.Identifier is validated and attached to logs only
type LALTransport struct {
	logger *slog.Logger
}

// Schemes the lal push client can dial
var lalSchemes = map[string]bool{"rtmp": true, "rtmps": true}

// NewLALTransport creates a transport backed by github.com/q191201771/lal
func NewLALTransport(logger *slog.Logger) *LALTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LALTransport{logger: logger}
}

// Connect dials uri and negotiates a publish stream. It blocks until the server
// accepted the stream, the timeout elapsed or ctx is cancelled.
func (t *LALTransport) Connect(ctx context.Context, uri string, opts Options) (Conn, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}
	target := StreamURL(uri)
	if u, err := url.Parse(target); err != nil || !lalSchemes[strings.ToLower(u.Scheme)] {
		return nil, fmt.Errorf("%w: scheme of %s not supported by the lal client", ErrOptionRejected, target)
	}
	timeoutMs := int(opts.Timeout / time.Millisecond)

	session := lalrtmp.NewPushSession(func(option *lalrtmp.PushSessionOption) {
		option.PushTimeoutMs = timeoutMs
		option.WriteAvTimeoutMs = timeoutMs
	})

	started := make(chan error, 1)
	go func() {
		started <- session.Push(target)
	}()

	select {
	case err := <-started:
		if err != nil {
			_ = session.Dispose()
			return nil, fmt.Errorf("rtmp: publish %s: %w", target, err)
		}
	case <-ctx.Done():
		_ = session.Dispose()
		return nil, fmt.Errorf("rtmp: publish %s: %w", target, ctx.Err())
	}

	t.logger.Debug("rtmp: publish session established",
		"uri", target,
		"identifier", opts.Identifier,
	)

	return &lalConn{session: session, uri: target, logger: t.logger}, nil
}

type lalConn struct {
	session *lalrtmp.PushSession
	uri     string
	logger  *slog.Logger

	ended    atomic.Bool
	disposed atomic.Bool
}

// IsConnected reports false once lal signalled the end of the session
func (c *lalConn) IsConnected() bool {
	if c.disposed.Load() || c.ended.Load() {
		return false
	}
	select {
	case err := <-c.session.WaitChan():
		c.ended.Store(true)
		c.logger.Debug("rtmp: publish session ended", "uri", c.uri, "error", err)
		return false
	default:
		return true
	}
}

func (c *lalConn) Write(ctx context.Context, p []byte) (int, error) {
	if c.disposed.Load() {
		return 0, fmt.Errorf("%w: session released", ErrUnusable)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tags, err := SplitTags(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnusable, err)
	}

	written := 0
	for _, tag := range tags {
		if !c.IsConnected() {
			return written, ErrNotConnected
		}
		if err := c.session.Write(remux.FlvTag2RtmpChunks(tag)); err != nil {
			return written, fmt.Errorf("rtmp: write tag type %d: %w", tag.Header.Type, err)
		}
		written += len(tag.Raw)
	}

	return len(p), nil
}

func (c *lalConn) Close() error {
	if c.disposed.Swap(true) {
		return nil
	}
	return c.session.Dispose()
}
