package notify

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

// Payload is the wire form of an event for MQTT and Redis
type Payload struct {
	Event       string `msgpack:"event"`
	Source      string `msgpack:"source"`
	TimestampNs int64  `msgpack:"timestamp_ns"`
	URI         string `msgpack:"uri"`
	SessionID   string `msgpack:"session_id"`
	EmittedAtMs int64  `msgpack:"emitted_at_ms"`
}

// NewPayload converts e; source names the publishing instance
func NewPayload(source string, e streampublish.Event) Payload {
	p := Payload{
		Event:       e.Kind.String(),
		Source:      source,
		TimestampNs: int64(e.Timestamp),
		URI:         e.URI,
		SessionID:   e.SessionID,
	}
	if !e.EmittedAt.IsZero() {
		p.EmittedAtMs = e.EmittedAt.UnixMilli()
	}
	return p
}

// Timestamp returns the stream running time carried by the payload
func (p Payload) Timestamp() time.Duration {
	return time.Duration(p.TimestampNs)
}

// Encode marshals p with msgpack
func Encode(p Payload) ([]byte, error) {
	data, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("notify: marshal payload: %w", err)
	}
	return data, nil
}

// Decode unmarshals a msgpack payload
func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("notify: unmarshal payload: %w", err)
	}
	return p, nil
}
