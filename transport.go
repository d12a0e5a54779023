package streampublish

import (
	"log/slog"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

type (
	// Transport opens connections to RTMP servers
	Transport = rtmp.Transport
	// Conn is one open publish connection
	Conn = rtmp.Conn
	// TransportOptions are applied to a connection before it is opened
	TransportOptions = rtmp.Options
)

// NewLALTransport returns the default transport, an RTMP push client that
// expects tag-aligned FLV chunks.
func NewLALTransport(logger *slog.Logger) Transport {
	return rtmp.NewLALTransport(logger)
}
