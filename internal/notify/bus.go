package notify

import (
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

// BusNotifier posts events as element messages on a GStreamer bus.
//
// The message structure is named after the event ("disconnected",
// "reconnected", "bandwidth") and carries a uint64 "timestamp" field in
// nanoseconds of stream running time.
type BusNotifier struct {
	bus    *gst.Bus
	source *gst.Element
	logger *slog.Logger
}

// NewBusNotifier posts on bus with source as the message origin
func NewBusNotifier(bus *gst.Bus, source *gst.Element, logger *slog.Logger) *BusNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusNotifier{bus: bus, source: source, logger: logger}
}

// Notify posts e on the bus
func (n *BusNotifier) Notify(e streampublish.Event) {
	s := gst.NewStructure(e.Kind.String())
	if err := s.SetValue("timestamp", uint64(e.Timestamp)); err != nil {
		n.logger.Warn("notify: cannot build bus message", "event", e.Kind.String(), "error", err)
		return
	}
	if e.URI != "" {
		_ = s.SetValue("uri", e.URI)
	}

	if !n.bus.Post(gst.NewElementMessage(n.source, s)) {
		n.logger.Warn("notify: bus rejected message", "event", e.Kind.String())
	}
}

// ParseBusEvent extracts an event kind and timestamp from an element message
// posted by BusNotifier. ok is false for any other message.
func ParseBusEvent(msg *gst.Message) (kind streampublish.EventKind, timestamp uint64, ok bool) {
	if msg == nil || msg.Type() != gst.MessageElement {
		return 0, 0, false
	}
	s := msg.GetStructure()
	if s == nil {
		return 0, 0, false
	}

	switch s.Name() {
	case streampublish.EventDisconnected.String():
		kind = streampublish.EventDisconnected
	case streampublish.EventReconnected.String():
		kind = streampublish.EventReconnected
	case streampublish.EventBandwidthWarning.String():
		kind = streampublish.EventBandwidthWarning
	default:
		return 0, 0, false
	}

	v, err := s.GetValue("timestamp")
	if err != nil {
		return kind, 0, true
	}
	ts, _ := v.(uint64)
	return kind, ts, true
}
