package rtmp

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/q191201771/lal/pkg/httpflv"
)

// FLV file header ("FLV", version, flags, header length) plus PreviousTagSize0
const flvFileHeaderSize = 9 + 4

var flvSignature = []byte("FLV")

var errEmptyPayload = errors.New("flv packet too small")

// SplitTags splits an FLV byte stream into whole tags. A leading FLV file
// header is skipped. Payloads ending in the middle of a tag are rejected.
func SplitTags(p []byte) ([]httpflv.Tag, error) {
	if len(p) == 0 {
		return nil, errEmptyPayload
	}

	if bytes.HasPrefix(p, flvSignature) {
		if len(p) < flvFileHeaderSize {
			return nil, fmt.Errorf("truncated flv header (%d bytes)", len(p))
		}
		p = p[flvFileHeaderSize:]
	}

	var tags []httpflv.Tag
	rd := bytes.NewReader(p)
	for rd.Len() > 0 {
		offset := len(p) - rd.Len()
		tag, err := httpflv.ReadTag(rd)
		if err != nil {
			return nil, fmt.Errorf("flv tag at offset %d: %w", offset, err)
		}
		tags = append(tags, tag)
	}

	return tags, nil
}
