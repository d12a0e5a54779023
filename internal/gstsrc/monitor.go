package gstsrc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/rtmp"
)

// ElementHandler receives element messages posted on the bus
type ElementHandler func(msg *gst.Message)

// MonitorBus polls the pipeline bus until ctx is cancelled or the stream ends
//
// This function:
//  1. Returns nil on EOS or context cancellation
//  2. Returns an error on a pipeline error message
//  3. Hands element messages (sink events) to onElement
func MonitorBus(ctx context.Context, elements *PipelineElements, onElement ElementHandler) error {
	if elements == nil || elements.Bus == nil {
		return fmt.Errorf("pipeline not initialized")
	}

	for {
		select {
		case <-ctx.Done():
			slog.Debug("gstsrc: context cancelled, stopping bus monitor")
			return nil

		default:
			// Poll with short timeout for responsive shutdown
			msg := elements.Bus.TimedPop(50 * time.Millisecond)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("gstsrc: end of stream received")
				return nil

			case gst.MessageError:
				gerr := msg.ParseError()
				category := rtmp.ClassifyError(gerr)
				slog.Error("gstsrc: pipeline error",
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
					"category", category.String(),
				)
				return fmt.Errorf("pipeline error [%s]: %s", category.String(), gerr.Error())

			case gst.MessageWarning:
				gerr := msg.ParseWarning()
				slog.Warn("gstsrc: pipeline warning", "warning", gerr.Error())

			case gst.MessageElement:
				if onElement != nil {
					onElement(msg)
				}

			case gst.MessageStateChanged:
				if msg.Source() == elements.Pipeline.GetName() {
					old, new := msg.ParseStateChanged()
					slog.Debug("gstsrc: pipeline state changed",
						"from", old,
						"to", new,
					)
				}
			}
		}
	}
}
