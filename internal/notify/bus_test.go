package notify

import (
	"testing"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

func TestBusNotifier_PostsElementMessage(t *testing.T) {
	gst.Init(nil)
	source, err := gst.NewElement("fakesrc")
	if err != nil {
		t.Skipf("Skipping test: GStreamer not available: %v", err)
	}
	bus := gst.NewBus()

	n := NewBusNotifier(bus, source, discard)
	n.Notify(testEvent(streampublish.EventReconnected))

	msg := bus.TimedPop(time.Second)
	kind, ts, ok := ParseBusEvent(msg)
	if !ok {
		t.Fatal("no sink event on the bus")
	}
	if kind != streampublish.EventReconnected || ts != uint64(1500*time.Millisecond) {
		t.Errorf("ParseBusEvent() = (%v, %d)", kind, ts)
	}
}

func TestParseBusEvent_IgnoresOtherMessages(t *testing.T) {
	if _, _, ok := ParseBusEvent(nil); ok {
		t.Error("nil message parsed as event")
	}
}
