package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tinyzimmer/go-gst/gst"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/config"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/gstsrc"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/logging"
	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/notify"
)

// Version information
const version = "v0.1.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "YAML configuration file (optional)")
	primary := flag.String("primary", "", "Primary RTMP URI")
	backup := flag.String("backup", "", "Backup RTMP URI")
	delay := flag.Duration("delay", streampublish.DefaultReconnectionDelay, "Reconnection delay (0 = fail on first connect error)")
	timeout := flag.Duration("timeout", streampublish.DefaultTCPTimeout, "TCP connect timeout")
	pipeline := flag.String("pipeline", "", "gst-launch description ending in 'appsink name=publish'")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "", "Log format: text, json")
	mqttBroker := flag.String("mqtt", "", "MQTT broker for event publishing (host:port)")
	redisAddr := flag.String("redis", "", "Redis address for the event stream (host:port)")
	statsInterval := flag.Duration("stats-interval", 0, "Interval between stats reports (0 = config value)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("test-publish %s\n", version)
		os.Exit(0)
	}

	// Load configuration, then apply explicitly set flags on top
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "primary":
			cfg.Sink.PrimaryURI = *primary
		case "backup":
			cfg.Sink.BackupURI = *backup
		case "delay":
			cfg.Sink.ReconnectionDelay = *delay
		case "timeout":
			cfg.Sink.TCPTimeout = *timeout
		case "pipeline":
			cfg.Pipeline.Description = *pipeline
		case "log-level":
			cfg.Logging.Level = *logLevel
			cfg.Sink.LogLevel = *logLevel
		case "log-format":
			cfg.Logging.Format = *logFormat
		case "mqtt":
			cfg.MQTT.Broker = *mqttBroker
		case "redis":
			cfg.Redis.Addr = *redisAddr
		case "stats-interval":
			cfg.StatsInterval = *statsInterval
		}
	})

	if cfg.Sink.PrimaryURI == "" && cfg.Sink.BackupURI == "" {
		fmt.Fprintf(os.Stderr, "Error: --primary or --backup flag (or a config file) is required\n\n")
		fmt.Fprintf(os.Stderr, "Usage example:\n")
		fmt.Fprintf(os.Stderr, "  test-publish --primary rtmp://live.example.com/app/key\n")
		fmt.Fprintf(os.Stderr, "  test-publish --primary rtmp://a/app/key --backup rtmp://b/app/key --delay 5s\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := config.Validate(&cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.Init(cfg.Logging)

	fmt.Printf("\n")
	fmt.Printf("Stream Publish Test %s\n", version)
	fmt.Printf("  Primary URI:   %s\n", orNone(cfg.Sink.PrimaryURI))
	fmt.Printf("  Backup URI:    %s\n", orNone(cfg.Sink.BackupURI))
	fmt.Printf("  Retry Delay:   %s\n", cfg.Sink.ReconnectionDelay)
	fmt.Printf("  TCP Timeout:   %s\n", cfg.Sink.TCPTimeout)
	fmt.Printf("  MQTT Events:   %s\n", orNone(cfg.MQTT.Broker))
	fmt.Printf("  Redis Events:  %s\n", orNone(cfg.Redis.Addr))
	fmt.Printf("\n")

	if err := run(cfg, logger); err != nil {
		slog.Error("test-publish: stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("test-publish: shutdown complete")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The bus notifier needs the running pipeline, which needs the sink
	var bus atomic.Pointer[notify.BusNotifier]
	notifiers := []streampublish.Notifier{
		streampublish.LogNotifier{Logger: logger},
		streampublish.NotifierFunc(func(e streampublish.Event) {
			if n := bus.Load(); n != nil {
				n.Notify(e)
			}
		}),
	}

	var redisNotifier *notify.RedisNotifier
	if cfg.RedisEnabled() {
		client, err := notify.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		redisNotifier = notify.NewRedisNotifier(client, cfg.Redis, cfg.InstanceID, logger)
		notifiers = append(notifiers, redisNotifier)
	}

	var mqttNotifier *notify.MQTTNotifier
	if cfg.MQTTEnabled() {
		client, err := notify.ConnectMQTT(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		mqttNotifier = notify.NewMQTTNotifier(client, cfg.MQTT, cfg.InstanceID, logger)
		notifiers = append(notifiers, mqttNotifier)
	}

	sink, err := streampublish.NewRTMPSink(cfg.Sink, streampublish.NewLALTransport(logger),
		streampublish.WithLogger(logger),
		streampublish.WithNotifier(notifiers...),
	)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}
	if err := sink.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sink: %w", err)
	}
	defer sink.Stop()

	source, err := gstsrc.NewSource(cfg.Pipeline.Source(), sink)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	elements, err := source.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}
	defer source.Stop()
	bus.Store(notify.NewBusNotifier(elements.Bus, elements.AppSink.Element, logger))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The pipeline ending (EOS or error) ends the whole run
		defer stop()
		return source.Run(gctx, func(msg *gst.Message) {
			kind, ts, ok := notify.ParseBusEvent(msg)
			if !ok {
				return
			}
			slog.Debug("test-publish: bus event",
				"event", kind.String(),
				"timestamp", time.Duration(ts),
			)
		})
	})

	if redisNotifier != nil {
		g.Go(func() error { return redisNotifier.Run(gctx) })
	}

	if cfg.StatsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.StatsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					reportStats(sink, source, mqttNotifier, redisNotifier)
				}
			}
		})
	}

	err = g.Wait()
	reportStats(sink, source, mqttNotifier, redisNotifier)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func reportStats(sink *streampublish.RTMPSink, source *gstsrc.Source, mqttNotifier *notify.MQTTNotifier, redisNotifier *notify.RedisNotifier) {
	stats := sink.Stats()
	src := source.Stats()

	attrs := []any{
		"uptime", stats.Uptime.Round(time.Second),
		"active_uri", stats.ActiveURI,
		"connected", stats.IsConnected,
		"faulted", stats.Faulted,
		"chunks_in", src.Chunks,
		"chunks_delivered", stats.ChunksDelivered,
		"chunks_dropped", stats.ChunksDropped,
		"chunks_rejected", src.Rejected,
		"bytes_sent", stats.BytesSent,
		"reconnects", stats.Reconnects,
		"connect_failures", stats.ConnectFailures,
		"write_failures", stats.WriteFailures,
		"events", stats.EventsEmitted,
		"errors_network", stats.ErrorsNetwork,
		"errors_protocol", stats.ErrorsProtocol,
		"errors_auth", stats.ErrorsAuth,
	}
	if mqttNotifier != nil {
		published, failed := mqttNotifier.Stats()
		attrs = append(attrs, "mqtt_published", published, "mqtt_failed", failed)
	}
	if redisNotifier != nil {
		published, dropped, failed := redisNotifier.Stats()
		attrs = append(attrs, "redis_published", published, "redis_dropped", dropped, "redis_failed", failed)
	}
	slog.Info("test-publish: stats", attrs...)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
