// Package streampublish provides continuous RTMP delivery of FLV-muxed media with
// automatic reconnection.
//
// This module is the egress counterpart of stream-capture: it takes an already
// encoded and muxed stream (one FLV tag per chunk) and keeps it flowing to an
// RTMP ingest server, switching between a primary and a backup endpoint when
// the server goes away.
//
// # Quick Start
//
//	cfg := streampublish.DefaultConfig()
//	cfg.PrimaryURI = "rtmp://live.example.com/app/stream-key"
//	cfg.BackupURI = "rtmp://backup.example.com/app/stream-key"
//
//	sink, err := streampublish.NewRTMPSink(cfg,
//	    streampublish.NewLALTransport(nil),
//	    streampublish.WithNotifier(streampublish.LogNotifier{}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := sink.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Stop()
//
//	for tag := range tags {
//	    chunk := streampublish.ChunkFromTag(tag.Timestamp, tag.Raw)
//	    if err := sink.Deliver(ctx, chunk); err != nil {
//	        // Setup error, fatal connect error or sticky fault
//	        return err
//	    }
//	}
//
// # Reconnection
//
// Delivery is driven entirely by Deliver calls; the sink runs no goroutines of
// its own. When a connect attempt fails, the sink waits until chunk timestamps
// have advanced by more than ReconnectionDelay and then tries again, toggling
// between primary and backup on every retry. Chunks arriving in between are
// dropped and Deliver returns nil. A write failure makes the next chunk retry
// immediately.
//
// With ReconnectionDelay == 0, a failed connect is returned as a fatal error
// and the next chunk tries again without waiting.
//
// # Metadata Replay
//
// The first stream header (script tag), video tag and audio tag seen on a
// connection are cached. After every reconnect they are sent again, in that
// order, before any other data, so the server can decode the resumed stream.
//
// # Events
//
// Transitions are reported to a Notifier:
//
//   - disconnected: a connection that was live is lost (once per outage)
//   - reconnected: a connection is back after a reported outage
//   - bandwidth: a reconnect follows two or more consecutive write failures
//
// Notifiers for the GStreamer bus, MQTT and Redis streams live in
// internal/notify and are wired by cmd/test-publish.
//
// # Sticky Fault
//
// A write on a connection the transport reports as unusable raises a fault:
// every later Deliver returns ErrFaulted until ResetFault is called (a pipeline
// flush does this in internal/gstsrc).
package streampublish
