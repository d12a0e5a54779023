package rtmp

import (
	"fmt"
	"net/url"
	"strings"
)

// Schemes accepted for publish URIs
var supportedSchemes = map[string]struct{}{
	"rtmp":   {},
	"rtmpt":  {},
	"rtmps":  {},
	"rtmpe":  {},
	"rtmfp":  {},
	"rtmpte": {},
	"rtmpts": {},
}

// ValidateURI checks that raw is an RTMP URI with a host, an application and a
// stream name. Connection parameters may follow the URI separated by
// whitespace ("rtmp://host/app/stream live=1").
func ValidateURI(raw string) error {
	target := StreamURL(raw)
	if target == "" {
		return fmt.Errorf("empty uri")
	}

	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse uri: %w", err)
	}

	if _, ok := supportedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("missing host")
	}

	app, stream, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if app == "" {
		return fmt.Errorf("missing application")
	}
	if stream == "" {
		return fmt.Errorf("missing stream name (playpath)")
	}

	return nil
}

// StreamURL returns the URI without trailing connection parameters
func StreamURL(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
