package gstsrc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// SourceStats contains ingestion counters
type SourceStats struct {
	Chunks   uint64
	Bytes    uint64
	Rejected uint64
}

// Source feeds a Sink from a GStreamer pipeline ending in an appsink
type Source struct {
	cfg  PipelineConfig
	sink Sink

	mu       sync.Mutex
	elements *PipelineElements

	chunks   uint64
	bytes    uint64
	rejected uint64
}

// NewSource validates cfg and checks that GStreamer is usable
func NewSource(cfg PipelineConfig, sink Sink) (*Source, error) {
	if sink == nil {
		return nil, fmt.Errorf("gstsrc: sink is required")
	}
	if cfg.Description == "" {
		return nil, fmt.Errorf("gstsrc: pipeline description is required")
	}
	if err := CheckAvailable(); err != nil {
		return nil, fmt.Errorf("gstsrc: %w", err)
	}
	return &Source{cfg: cfg, sink: sink}, nil
}

// Start builds the pipeline, wires the appsink and the flush probe, and sets it PLAYING.
// Returns the pipeline elements (the bus is used for event notifications).
func (s *Source) Start(ctx context.Context) (*PipelineElements, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.elements != nil {
		return nil, fmt.Errorf("gstsrc: source already started")
	}

	elements, err := CreatePipeline(s.cfg)
	if err != nil {
		return nil, fmt.Errorf("gstsrc: %w", err)
	}

	callbackCtx := &CallbackContext{
		Ctx:          ctx,
		Sink:         s.sink,
		ChunkCounter: &s.chunks,
		BytesRead:    &s.bytes,
		Rejected:     &s.rejected,
	}
	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return OnNewSample(sink, callbackCtx)
		},
	})

	if err := InstallFlushProbe(elements.AppSink.Element, func() {
		atomic.StoreUint64(&s.rejected, 0)
		s.sink.ResetFault()
	}); err != nil {
		slog.Warn("gstsrc: flush probe not installed, faults need a manual reset", "error", err)
	}

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		_ = DestroyPipeline(elements)
		return nil, fmt.Errorf("gstsrc: failed to start pipeline: %w", err)
	}

	s.elements = elements
	slog.Info("gstsrc: pipeline started", "sink", elements.AppSink.GetName())
	return elements, nil
}

// Run monitors the bus until ctx is cancelled, EOS, or a pipeline error
func (s *Source) Run(ctx context.Context, onElement ElementHandler) error {
	s.mu.Lock()
	elements := s.elements
	s.mu.Unlock()

	return MonitorBus(ctx, elements, onElement)
}

// Stop destroys the pipeline. Idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.elements == nil {
		return nil
	}
	err := DestroyPipeline(s.elements)
	s.elements = nil

	slog.Info("gstsrc: pipeline stopped",
		"chunks", atomic.LoadUint64(&s.chunks),
		"bytes", atomic.LoadUint64(&s.bytes),
	)
	return err
}

// Stats returns ingestion counters
func (s *Source) Stats() SourceStats {
	return SourceStats{
		Chunks:   atomic.LoadUint64(&s.chunks),
		Bytes:    atomic.LoadUint64(&s.bytes),
		Rejected: atomic.LoadUint64(&s.rejected),
	}
}
