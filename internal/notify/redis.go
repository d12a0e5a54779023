package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

// RedisConfig configures the Redis stream publisher
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Addrs    []string      `yaml:"addrs"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Stream   string        `yaml:"stream"`
	MaxLen   int64         `yaml:"max_len"`
	Buffer   int           `yaml:"buffer"`
	Timeout  time.Duration `yaml:"timeout"`
}

const defaultStream = "stream-publish:events"

// StreamAdder is the part of a Redis client the notifier needs
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// NewRedisClient creates a client for cfg. A single address gives a plain
// client; several give a cluster client.
func NewRedisClient(cfg RedisConfig) (redis.UniversalClient, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("notify: redis addr is required")
	}

	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		DialTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		MaxRetries:   2,
	}), nil
}

// RedisNotifier appends events to a Redis stream (XADD).
//
// Notify only enqueues; Run performs the writes. Events are dropped when
// the queue is full.
type RedisNotifier struct {
	client  StreamAdder
	stream  string
	maxLen  int64
	source  string
	timeout time.Duration
	logger  *slog.Logger
	events  chan streampublish.Event

	published uint64
	dropped   uint64
	errors    uint64
}

// NewRedisNotifier creates a notifier writing through client
func NewRedisNotifier(client StreamAdder, cfg RedisConfig, source string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		stream = defaultStream
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisNotifier{
		client:  client,
		stream:  stream,
		maxLen:  cfg.MaxLen,
		source:  source,
		timeout: timeout,
		logger:  logger,
		events:  make(chan streampublish.Event, buffer),
	}
}

// Notify enqueues e without blocking
func (n *RedisNotifier) Notify(e streampublish.Event) {
	select {
	case n.events <- e:
	default:
		atomic.AddUint64(&n.dropped, 1)
		n.logger.Warn("notify: redis queue full, dropping event", "event", e.Kind.String())
	}
}

// Run writes queued events until ctx is cancelled, then flushes what is left.
func (n *RedisNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n.flush()
			return nil
		case e := <-n.events:
			n.publish(ctx, e)
		}
	}
}

func (n *RedisNotifier) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	for {
		select {
		case e := <-n.events:
			n.publish(ctx, e)
		default:
			return
		}
	}
}

func (n *RedisNotifier) publish(ctx context.Context, e streampublish.Event) {
	payload, err := Encode(NewPayload(n.source, e))
	if err != nil {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Error("notify: redis payload encoding failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"event":   e.Kind.String(),
			"payload": payload,
		},
	}
	if n.maxLen > 0 {
		args.MaxLen = n.maxLen
		args.Approx = true
	}

	id, err := n.client.XAdd(ctx, args).Result()
	if err != nil {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Warn("notify: redis xadd failed",
			"stream", n.stream,
			"event", e.Kind.String(),
			"error", err,
		)
		return
	}
	atomic.AddUint64(&n.published, 1)
	n.logger.Debug("notify: event appended", "stream", n.stream, "id", id, "event", e.Kind.String())
}

// Stats returns the number of published, dropped and failed events
func (n *RedisNotifier) Stats() (published, dropped, failed uint64) {
	return atomic.LoadUint64(&n.published), atomic.LoadUint64(&n.dropped), atomic.LoadUint64(&n.errors)
}
