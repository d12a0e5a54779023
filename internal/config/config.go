package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/gstsrc"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/logging"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/notify"
)

// Config represents the complete publisher configuration
type Config struct {
	InstanceID      string               `yaml:"instance_id"`
	StatsInterval   time.Duration        `yaml:"stats_interval"`
	ShutdownTimeout time.Duration        `yaml:"shutdown_timeout"`
	Sink            streampublish.Config `yaml:"sink"`
	Pipeline        PipelineConfig       `yaml:"pipeline"`
	MQTT            notify.MQTTConfig    `yaml:"mqtt"`
	Redis           notify.RedisConfig   `yaml:"redis"`
	Logging         logging.Config       `yaml:"logging"`
}

// PipelineConfig contains the GStreamer source settings
type PipelineConfig struct {
	Description string `yaml:"description"` // gst-launch description ending in an appsink
	SinkName    string `yaml:"sink_name"`   // appsink name (default: publish)
}

// Source converts to the gstsrc configuration
func (p PipelineConfig) Source() gstsrc.PipelineConfig {
	return gstsrc.PipelineConfig{Description: p.Description, SinkName: p.SinkName}
}

// MQTTEnabled reports whether events are published to MQTT
func (c *Config) MQTTEnabled() bool { return c.MQTT.Broker != "" }

// RedisEnabled reports whether events are appended to a Redis stream
func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" || len(c.Redis.Addrs) > 0 }

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Default returns a configuration with every optional field set
func Default() Config {
	return Config{
		InstanceID:      "stream-publish",
		StatsInterval:   10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Sink:            streampublish.DefaultConfig(),
		Pipeline: PipelineConfig{
			Description: gstsrc.DefaultDescription,
			SinkName:    gstsrc.DefaultSinkName,
		},
		Logging: logging.Config{Level: "info", Format: logging.FormatText},
	}
}

// Load reads a YAML file over Default() and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and fills derived defaults
func Validate(cfg *Config) error {
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	if err := cfg.Sink.Validate(); err != nil {
		return fmt.Errorf("sink: %w", err)
	}

	if cfg.Pipeline.Description == "" {
		return fmt.Errorf("pipeline.description is required")
	}

	if cfg.StatsInterval < 0 {
		return fmt.Errorf("stats_interval must be >= 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch cfg.Logging.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be %q or %q", logging.FormatText, logging.FormatJSON)
	}

	if cfg.MQTTEnabled() {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = cfg.InstanceID
		}
		if cfg.MQTT.TopicPrefix == "" {
			cfg.MQTT.TopicPrefix = fmt.Sprintf("care/publish/%s", cfg.InstanceID)
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	if cfg.RedisEnabled() && cfg.Redis.Stream == "" {
		cfg.Redis.Stream = fmt.Sprintf("care:publish:%s", cfg.InstanceID)
	}

	return nil
}
