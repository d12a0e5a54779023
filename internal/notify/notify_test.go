package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	redis "github.com/redis/go-redis/v9"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testEvent(kind streampublish.EventKind) streampublish.Event {
	return streampublish.Event{
		Kind:      kind,
		Timestamp: 1500 * time.Millisecond,
		URI:       "rtmp://live.example.com/app/key",
		SessionID: "6f1c3a",
		EmittedAt: time.UnixMilli(1700000000000),
	}
}

func TestPayload_EncodeDecode(t *testing.T) {
	data, err := Encode(NewPayload("cam-1", testEvent(streampublish.EventBandwidthWarning)))
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	p, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if p.Event != "bandwidth" || p.Source != "cam-1" || p.Timestamp() != 1500*time.Millisecond {
		t.Errorf("decoded payload = %+v", p)
	}
	if p.EmittedAtMs != 1700000000000 {
		t.Errorf("EmittedAtMs = %d", p.EmittedAtMs)
	}

	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("expected error for invalid msgpack")
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeMQTT overrides the two client methods the notifier uses
type fakeMQTT struct {
	mqtt.Client

	mu    sync.Mutex
	open  bool
	err   error
	calls []publishCall
}

func (c *fakeMQTT) IsConnectionOpen() bool { return c.open }

func (c *fakeMQTT) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, publishCall{topic: topic, qos: qos, payload: payload.([]byte)})
	return newFakeToken(c.err)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMQTTNotifier_PublishesToKindTopic(t *testing.T) {
	client := &fakeMQTT{open: true}
	n := NewMQTTNotifier(client, MQTTConfig{TopicPrefix: "care/publish/", QoS: 1}, "cam-1", discard)

	n.Notify(testEvent(streampublish.EventDisconnected))

	if len(client.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(client.calls))
	}
	call := client.calls[0]
	if call.topic != "care/publish/disconnected" || call.qos != 1 {
		t.Errorf("published to %q qos %d", call.topic, call.qos)
	}
	p, err := Decode(call.payload)
	if err != nil || p.Event != "disconnected" || p.SessionID != "6f1c3a" {
		t.Errorf("payload = %+v, err = %v", p, err)
	}

	waitFor(t, func() bool { published, _ := n.Stats(); return published == 1 })
}

func TestMQTTNotifier_CountsFailures(t *testing.T) {
	client := &fakeMQTT{open: false}
	n := NewMQTTNotifier(client, MQTTConfig{}, "cam-1", discard)

	n.Notify(testEvent(streampublish.EventReconnected))
	if len(client.calls) != 0 {
		t.Fatal("published while disconnected")
	}

	client.open = true
	client.err = errors.New("not authorized")
	n.Notify(testEvent(streampublish.EventReconnected))
	if client.calls[0].topic != defaultTopicPrefix+"/reconnected" {
		t.Errorf("topic = %q", client.calls[0].topic)
	}

	waitFor(t, func() bool { _, failed := n.Stats(); return failed == 2 })
}

type fakeStream struct {
	mu    sync.Mutex
	err   error
	added []*redis.XAddArgs
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	f.added = append(f.added, a)
	return redis.NewStringResult("1700000000000-0", nil)
}

func (f *fakeStream) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.added)
}

func TestRedisNotifier_AppendsEvents(t *testing.T) {
	stream := &fakeStream{}
	n := NewRedisNotifier(stream, RedisConfig{Stream: "publish:events", MaxLen: 1000}, "cam-1", discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	n.Notify(testEvent(streampublish.EventDisconnected))
	n.Notify(testEvent(streampublish.EventReconnected))
	waitFor(t, func() bool { return stream.count() == 2 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v", err)
	}

	args := stream.added[0]
	if args.Stream != "publish:events" || args.MaxLen != 1000 || !args.Approx {
		t.Errorf("XAddArgs = %+v", args)
	}
	values := args.Values.(map[string]interface{})
	if values["event"] != "disconnected" {
		t.Errorf("event field = %v", values["event"])
	}
	p, err := Decode(values["payload"].([]byte))
	if err != nil || p.Event != "disconnected" {
		t.Errorf("payload = %+v, err = %v", p, err)
	}

	if published, dropped, failed := n.Stats(); published != 2 || dropped != 0 || failed != 0 {
		t.Errorf("Stats() = %d/%d/%d", published, dropped, failed)
	}
}

func TestRedisNotifier_DropsWhenQueueFull(t *testing.T) {
	n := NewRedisNotifier(&fakeStream{}, RedisConfig{Buffer: 1}, "cam-1", discard)

	n.Notify(testEvent(streampublish.EventDisconnected))
	n.Notify(testEvent(streampublish.EventReconnected))

	if _, dropped, _ := n.Stats(); dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestRedisNotifier_FlushesOnShutdown(t *testing.T) {
	stream := &fakeStream{err: errors.New("READONLY You can't write against a read only replica")}
	n := NewRedisNotifier(stream, RedisConfig{}, "cam-1", discard)
	n.Notify(testEvent(streampublish.EventBandwidthWarning))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = n.Run(ctx)

	if _, _, failed := n.Stats(); failed != 1 {
		t.Errorf("failed = %d, want 1 (queued event attempted on shutdown)", failed)
	}
}

func TestNewRedisClient_RequiresAddr(t *testing.T) {
	if _, err := NewRedisClient(RedisConfig{Addrs: []string{" "}}); err == nil {
		t.Error("expected error without address")
	}
	client, err := NewRedisClient(RedisConfig{Addr: "localhost:6379"})
	if err != nil {
		t.Fatalf("NewRedisClient() failed: %v", err)
	}
	_ = client.Close()
}
