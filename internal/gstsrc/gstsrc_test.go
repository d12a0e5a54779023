package gstsrc

import (
	"context"
	"sync"
	"testing"
	"time"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

func skipWithoutGStreamer(t *testing.T) {
	t.Helper()
	if err := CheckAvailable(); err != nil {
		t.Skipf("Skipping test: GStreamer not available: %v", err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	chunks []streampublish.Chunk
	resets int
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, c streampublish.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c)
	return s.err
}

func (s *recordingSink) ResetFault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func TestCallbackContext_TimestampFallback(t *testing.T) {
	c := &CallbackContext{}

	steps := []struct {
		pts  time.Duration
		want time.Duration
	}{
		{-1, 0},
		{40 * time.Millisecond, 40 * time.Millisecond},
		{-1, 40 * time.Millisecond},
		{80 * time.Millisecond, 80 * time.Millisecond},
	}
	for _, s := range steps {
		if got := c.timestamp(s.pts); got != s.want {
			t.Errorf("timestamp(%v) = %v, want %v", s.pts, got, s.want)
		}
	}
}

func TestNewSource_Validation(t *testing.T) {
	if _, err := NewSource(PipelineConfig{Description: DefaultDescription}, nil); err == nil {
		t.Error("expected error for nil sink")
	}
	if _, err := NewSource(PipelineConfig{}, &recordingSink{}); err == nil {
		t.Error("expected error for empty description")
	}
}

func TestCreatePipeline(t *testing.T) {
	skipWithoutGStreamer(t)

	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr bool
	}{
		{"appsink found", PipelineConfig{Description: "fakesrc num-buffers=1 ! appsink name=publish"}, false},
		{"custom sink name", PipelineConfig{Description: "fakesrc ! appsink name=out", SinkName: "out"}, false},
		{"missing appsink", PipelineConfig{Description: "fakesrc ! fakesink"}, true},
		{"not an appsink", PipelineConfig{Description: "fakesrc ! fakesink name=publish"}, true},
		{"empty", PipelineConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements, err := CreatePipeline(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreatePipeline() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if elements.AppSink == nil || elements.Bus == nil {
					t.Error("pipeline elements incomplete")
				}
				_ = DestroyPipeline(elements)
			}
		})
	}
}

func TestSource_DeliversBuffersUntilEOS(t *testing.T) {
	skipWithoutGStreamer(t)

	sink := &recordingSink{}
	src, err := NewSource(PipelineConfig{
		Description: "fakesrc num-buffers=5 sizetype=fixed sizemax=16 filltype=zero ! appsink name=publish sync=false",
	}, sink)
	if err != nil {
		t.Fatalf("NewSource() failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := src.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer src.Stop()

	if err := src.Run(ctx, nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.chunks) != 5 {
		t.Fatalf("delivered %d chunks, want 5", len(sink.chunks))
	}
	if len(sink.chunks[0].Data) != 16 {
		t.Errorf("chunk size = %d, want 16", len(sink.chunks[0].Data))
	}
	if stats := src.Stats(); stats.Chunks != 5 || stats.Bytes != 80 {
		t.Errorf("Stats() = %+v", stats)
	}
}
