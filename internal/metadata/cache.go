package metadata

import (
	"fmt"
	"log/slog"
)

// Tag values carried in the first byte of an FLV tag
const (
	TagAudio      byte = 8
	TagVideo      byte = 9
	TagScriptData byte = 18
)

// Category is a replayable slot kind
type Category int

const (
	// CategoryStreamHeader holds the onMetaData script tag
	CategoryStreamHeader Category = iota
	// CategoryVideo holds the first video tag (decoder configuration)
	CategoryVideo
	// CategoryAudio holds the first audio tag (decoder configuration)
	CategoryAudio

	categoryCount
)

// String returns a human-readable representation of the category
func (c Category) String() string {
	switch c {
	case CategoryStreamHeader:
		return "stream_header"
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// CategoryOf maps a tag type to its slot. ok is false for tags that are never cached.
func CategoryOf(tag byte) (Category, bool) {
	switch tag {
	case TagScriptData:
		return CategoryStreamHeader, true
	case TagVideo:
		return CategoryVideo, true
	case TagAudio:
		return CategoryAudio, true
	default:
		return 0, false
	}
}

// WriteFunc sends one payload to the server
type WriteFunc func(payload []byte) error

type slot struct {
	captured bool
	payload  []byte
}

// Cache stores the first chunk of each category so a new connection can be primed.
type Cache struct {
	slots  [categoryCount]slot
	logger *slog.Logger
}

// NewCache creates an empty cache
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{logger: logger}
}

// Observe captures data if the connection is up and the slot for tag is still empty.
func (c *Cache) Observe(tag byte, data []byte, connected bool) {
	if !connected {
		return
	}
	cat, ok := CategoryOf(tag)
	if !ok || c.slots[cat].captured {
		return
	}

	payload := make([]byte, len(data))
	copy(payload, data)
	c.slots[cat] = slot{captured: true, payload: payload}

	c.logger.Debug("metadata: captured",
		"category", cat.String(),
		"size_bytes", len(payload),
	)
}

// Captured reports whether the slot for cat holds a payload
func (c *Cache) Captured(cat Category) bool {
	if cat < 0 || cat >= categoryCount {
		return false
	}
	return c.slots[cat].captured
}

// Replay writes the captured slots in protocol order: stream header, video, audio.
// The first failing write stops the replay.
func (c *Cache) Replay(write WriteFunc) error {
	for cat := CategoryStreamHeader; cat < categoryCount; cat++ {
		s := c.slots[cat]
		if !s.captured {
			continue
		}
		if err := write(s.payload); err != nil {
			return fmt.Errorf("replay %s metadata: %w", cat, err)
		}
		c.logger.Debug("metadata: replayed",
			"category", cat.String(),
			"size_bytes", len(s.payload),
		)
	}
	return nil
}

// Clear drops every captured slot
func (c *Cache) Clear() {
	c.slots = [categoryCount]slot{}
}
