package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

// MQTTConfig configures the MQTT event publisher
type MQTTConfig struct {
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         byte          `yaml:"qos"`
	Timeout     time.Duration `yaml:"timeout"`
}

const defaultTopicPrefix = "stream-publish/events"

// ConnectMQTT creates a client with auto-reconnect and connects it to cfg.Broker
func ConnectMQTT(cfg MQTTConfig, logger *slog.Logger) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("notify: mqtt broker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		logger.Info("notify: mqtt connection established",
			"broker", broker,
			"client_id", cfg.ClientID,
		)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Warn("notify: mqtt connection lost, will auto-reconnect",
			"error", err,
			"broker", broker,
		)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("notify: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("notify: mqtt connection failed: %w", err)
	}
	return client, nil
}

// MQTTNotifier publishes events to <prefix>/<event> as msgpack payloads.
//
// Publishing is fire-and-forget: Notify never waits for the broker.
type MQTTNotifier struct {
	client  mqtt.Client
	prefix  string
	qos     byte
	source  string
	timeout time.Duration
	logger  *slog.Logger

	published uint64
	errors    uint64
}

// NewMQTTNotifier wraps a connected client. source identifies this publisher in payloads.
func NewMQTTNotifier(client mqtt.Client, cfg MQTTConfig, source string, logger *slog.Logger) *MQTTNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MQTTNotifier{
		client:  client,
		prefix:  prefix,
		qos:     cfg.QoS,
		source:  source,
		timeout: timeout,
		logger:  logger,
	}
}

// Topic returns the topic events of kind are published to
func (n *MQTTNotifier) Topic(kind streampublish.EventKind) string {
	return n.prefix + "/" + kind.String()
}

// Notify publishes e without blocking
func (n *MQTTNotifier) Notify(e streampublish.Event) {
	if !n.client.IsConnectionOpen() {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Debug("notify: mqtt not connected, event not published", "event", e.Kind.String())
		return
	}

	payload, err := Encode(NewPayload(n.source, e))
	if err != nil {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Error("notify: mqtt payload encoding failed", "error", err)
		return
	}

	topic := n.Topic(e.Kind)
	token := n.client.Publish(topic, n.qos, false, payload)
	go n.await(token, topic)
}

func (n *MQTTNotifier) await(token mqtt.Token, topic string) {
	if !token.WaitTimeout(n.timeout) {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Warn("notify: mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		atomic.AddUint64(&n.errors, 1)
		n.logger.Warn("notify: mqtt publish failed", "topic", topic, "error", err)
		return
	}
	atomic.AddUint64(&n.published, 1)
}

// Stats returns the number of published and failed events
func (n *MQTTNotifier) Stats() (published, failed uint64) {
	return atomic.LoadUint64(&n.published), atomic.LoadUint64(&n.errors)
}
