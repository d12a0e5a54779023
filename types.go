package streampublish

import (
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/stream-publish/internal/metadata"
)

// TagType is the FLV tag type carried in the first byte of a chunk
type TagType uint8

const (
	// TagAudio marks an audio tag
	TagAudio TagType = TagType(metadata.TagAudio)
	// TagVideo marks a video tag
	TagVideo TagType = TagType(metadata.TagVideo)
	// TagScriptData marks a script data tag (onMetaData stream header)
	TagScriptData TagType = TagType(metadata.TagScriptData)
)

// String returns a human-readable representation of the tag type
func (t TagType) String() string {
	switch t {
	case TagAudio:
		return "audio"
	case TagVideo:
		return "video"
	case TagScriptData:
		return "script"
	default:
		return "other"
	}
}

// Chunk is one unit of already-muxed FLV data handed to the sink
type Chunk struct {
	// Timestamp is the stream running time of the chunk
	Timestamp time.Duration
	// Type is the FLV tag type (first byte of Data for tag-aligned input)
	Type TagType
	// Data is the encoded payload; the sink copies what it keeps
	Data []byte
}

// ChunkFromTag builds a chunk from a whole FLV tag, reading the type from its first byte
func ChunkFromTag(ts time.Duration, tag []byte) Chunk {
	var t TagType
	if len(tag) > 0 {
		t = TagType(tag[0] & 0x1f)
	}
	return Chunk{Timestamp: ts, Type: t, Data: tag}
}

// ConnectionState is the state of the link to the server
type ConnectionState int

const (
	// StateIdle means no connection has been attempted since Start
	StateIdle ConnectionState = iota
	// StateConnected means the last connect succeeded and no write failed since
	StateConnected
	// StateError means the last connect or write failed
	StateError
)

// String returns a human-readable representation of the state
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Phase is the delivery phase of the sink
type Phase int

const (
	// PhaseAwaitingFirstChunk means no chunk has been sent on the current session
	PhaseAwaitingFirstChunk Phase = iota
	// PhaseSteady means chunks are written directly
	PhaseSteady
	// PhaseRecovering means the sink is waiting to reconnect
	PhaseRecovering
)

// String returns a human-readable representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingFirstChunk:
		return "awaiting_first_chunk"
	case PhaseSteady:
		return "steady"
	case PhaseRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// SinkStats contains current sink statistics
type SinkStats struct {
	// ChunksDelivered is the number of chunks written to the server
	ChunksDelivered uint64
	// ChunksDropped is the number of chunks discarded while disconnected
	ChunksDropped uint64
	// BytesSent is the total payload bytes written, replayed metadata included
	BytesSent uint64
	// Connects is the number of successful connections
	Connects uint32
	// Reconnects is the number of connections that replaced a lost one within a Start..Stop session
	Reconnects uint32
	// ConnectFailures is the number of failed connect attempts
	ConnectFailures uint32
	// WriteFailures is the number of failed writes
	WriteFailures uint32
	// EventsEmitted is the number of notifications sent
	EventsEmitted uint64
	// ActiveURI is the endpoint of the current (or last attempted) connection
	ActiveURI string
	// IsConnected indicates if the sink currently holds a live connection
	IsConnected bool
	// Faulted indicates the sticky write fault is raised
	Faulted bool
	// Uptime is the time since Start
	Uptime time.Duration

	// Error categorization
	ErrorsNetwork  uint64
	ErrorsProtocol uint64
	ErrorsAuth     uint64
	ErrorsUnknown  uint64
}
