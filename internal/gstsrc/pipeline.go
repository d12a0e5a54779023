package gstsrc

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// DefaultSinkName is the appsink name looked up in the launch description
const DefaultSinkName = "publish"

// DefaultDescription encodes test sources into FLV tags
const DefaultDescription = "videotestsrc is-live=true ! video/x-raw,width=1280,height=720,framerate=30/1 ! " +
	"x264enc tune=zerolatency key-int-max=60 bitrate=2500 ! h264parse ! flvmux name=mux streamable=true ! " +
	"appsink name=publish sync=false " +
	"audiotestsrc is-live=true wave=sine ! audioconvert ! voaacenc bitrate=128000 ! aacparse ! mux."

// PipelineConfig contains configuration for GStreamer pipeline creation
type PipelineConfig struct {
	// Description is a gst-launch style description producing FLV buffers into an appsink
	Description string
	// SinkName is the name of that appsink (DefaultSinkName if empty)
	SinkName string
}

// PipelineElements holds references to GStreamer pipeline elements needed
// for callbacks, probes and cleanup
type PipelineElements struct {
	Pipeline *gst.Pipeline
	AppSink  *app.Sink
	Bus      *gst.Bus
}

// CheckAvailable verifies GStreamer can create elements
func CheckAvailable() error {
	// Initialize GStreamer (safe to call multiple times)
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)
	return nil
}

// CreatePipeline parses the launch description and locates the appsink.
//
// The pipeline is configured but NOT started (state remains NULL).
// Caller must call pipeline.SetState(gst.StatePlaying) to start.
func CreatePipeline(cfg PipelineConfig) (*PipelineElements, error) {
	desc := strings.TrimSpace(cfg.Description)
	if desc == "" {
		return nil, fmt.Errorf("pipeline description is empty")
	}
	name := cfg.SinkName
	if name == "" {
		name = DefaultSinkName
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName(name)
	if err != nil || elem == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("appsink %q not found in pipeline", name)
	}
	appsink := app.SinkFromElement(elem)
	if appsink == nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("element %q is not an appsink", name)
	}

	slog.Debug("gstsrc: pipeline created",
		"sink", name,
		"description", desc,
	)

	return &PipelineElements{
		Pipeline: pipeline,
		AppSink:  appsink,
		Bus:      pipeline.GetPipelineBus(),
	}, nil
}

// DestroyPipeline sets the pipeline to NULL, releasing its resources.
// Safe to call even if pipeline is already destroyed.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}
