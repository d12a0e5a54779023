package gstsrc

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	streampublish "github.com/e7canasta/orion-care-sensor/modules/stream-publish"
)

// Sink receives the chunks pulled from the appsink
type Sink interface {
	Deliver(ctx context.Context, chunk streampublish.Chunk) error
	ResetFault()
}

// CallbackContext holds state needed by GStreamer callbacks
type CallbackContext struct {
	Ctx          context.Context
	Sink         Sink
	ChunkCounter *uint64 // Atomic counter for pulled buffers
	BytesRead    *uint64 // Atomic counter for bytes read
	Rejected     *uint64 // Atomic counter for chunks refused while faulted

	lastTimestamp time.Duration
}

// OnNewSample is called by GStreamer when a new FLV buffer is available
//
// This callback:
//  1. Pulls the sample from the appsink
//  2. Copies the buffer data (GStreamer will reuse the buffer)
//  3. Builds a Chunk using the buffer PTS as stream time
//  4. Delivers it to the sink inline (connect and write block this thread)
//
// Returns gst.FlowError when the sink reports a fatal error. A sink that is
// only faulted keeps the pipeline running so a flush can clear the fault.
func OnNewSample(sink *app.Sink, ctx *CallbackContext) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("gstsrc: failed to pull sample from appsink, skipping buffer")
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("gstsrc: failed to get buffer from sample, skipping buffer")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		slog.Warn("gstsrc: empty buffer received")
		return gst.FlowOK
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	buffer.Unmap()

	ts := ctx.timestamp(time.Duration(buffer.PresentationTimestamp()))

	atomic.AddUint64(ctx.ChunkCounter, 1)
	atomic.AddUint64(ctx.BytesRead, uint64(len(payload)))

	chunk := streampublish.ChunkFromTag(ts, payload)
	if err := ctx.Sink.Deliver(ctx.Ctx, chunk); err != nil {
		if errors.Is(err, streampublish.ErrFaulted) {
			if atomic.AddUint64(ctx.Rejected, 1) == 1 {
				slog.Error("gstsrc: sink faulted, waiting for flush", "error", err)
			}
			return gst.FlowOK
		}
		slog.Error("gstsrc: delivery failed",
			"error", err,
			"timestamp", ts,
			"type", chunk.Type.String(),
		)
		return gst.FlowError
	}

	return gst.FlowOK
}

// timestamp returns pts, or the previous timestamp for buffers without one
func (c *CallbackContext) timestamp(pts time.Duration) time.Duration {
	if pts < 0 {
		return c.lastTimestamp
	}
	c.lastTimestamp = pts
	return pts
}

// InstallFlushProbe calls onFlush for every FLUSH_STOP event reaching element's sink pad
func InstallFlushProbe(element *gst.Element, onFlush func()) error {
	pad := element.GetStaticPad("sink")
	if pad == nil {
		return errors.New("failed to get sink pad from element")
	}

	pad.AddProbe(gst.PadProbeTypeEventDownstream|gst.PadProbeTypeEventFlush,
		func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
			event := info.GetEvent()
			if event == nil {
				return gst.PadProbeOK
			}
			if event.Type() == gst.EventTypeFlushStop {
				slog.Debug("gstsrc: flush stop received", "element", element.GetName())
				onFlush()
			}
			return gst.PadProbeOK
		})

	slog.Debug("gstsrc: flush probe installed", "element", element.GetName())
	return nil
}
