package streampublish

import (
	"bytes"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestEventKind_String(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{EventDisconnected, "disconnected"},
		{EventReconnected, "reconnected"},
		{EventBandwidthWarning, "bandwidth"},
		{EventKind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestEventNotifier_Gating(t *testing.T) {
	rec := &recorder{}
	var emitted uint64
	n := newEventNotifier(rec, &emitted)

	// Never connected: failures are silent
	n.connectFailed(0, testPrimary, "")
	n.connectFailed(time.Second, testPrimary, "")
	n.connected(2*time.Second, testPrimary, "s1")
	if len(rec.events) != 0 {
		t.Fatalf("events before first connection = %v", rec.kinds())
	}

	n.writeFailed()
	n.connectFailed(3*time.Second, testPrimary, "s1")
	n.connectFailed(4*time.Second, testPrimary, "s1")
	n.connected(5*time.Second, testPrimary, "s2")
	n.connected(6*time.Second, testPrimary, "s3")

	want := []EventKind{EventDisconnected, EventReconnected}
	if got := rec.kinds(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if emitted != 2 {
		t.Errorf("emitted = %d, want 2", emitted)
	}
}

func TestEventNotifier_BandwidthNeedsWriteFailureStreak(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		connect  bool // a connect failure after the write failures
		want     []EventKind
	}{
		{"one write failure", 1, false, []EventKind{}},
		{"two write failures", 2, false, []EventKind{EventBandwidthWarning}},
		{"three write failures", 3, false, []EventKind{EventBandwidthWarning}},
		{"streak ended by connect failure", 2, true, []EventKind{EventDisconnected, EventReconnected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			n := newEventNotifier(rec, nil)
			n.connected(0, testPrimary, "s0")

			for i := 0; i < tt.failures; i++ {
				n.writeFailed()
			}
			if tt.connect {
				n.connectFailed(time.Second, testPrimary, "s0")
			}
			n.connected(2*time.Second, testPrimary, "s1")

			if got := rec.kinds(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("events = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventNotifier_ResetForgetsHistory(t *testing.T) {
	rec := &recorder{}
	n := newEventNotifier(rec, nil)
	n.connected(0, testPrimary, "s0")
	n.reset()

	n.connectFailed(time.Second, testPrimary, "")
	if len(rec.events) != 0 {
		t.Errorf("events after reset = %v, want none", rec.kinds())
	}
}

func TestMultiNotifier_FansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := MultiNotifier{a, nil, b}
	m.Notify(Event{Kind: EventReconnected})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("fan-out reached %d/%d notifiers", len(a.events), len(b.events))
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	n.Notify(Event{Kind: EventDisconnected, Timestamp: time.Second, URI: testPrimary})

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "event=disconnected") {
		t.Errorf("unexpected log output %q", out)
	}
}
