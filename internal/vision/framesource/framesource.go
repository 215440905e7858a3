// Package framesource implements the Frame Source Adapter (C3):
// fetching a single frame's bytes from a camera's video-source URI
// (spec.md §4.3). It never touches the database or the network beyond
// the single fetch it's asked to make.
package framesource

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/brigadeops/core/internal/apperr"
)

const component = "framesource"

// Frame is the result of a successful fetch.
type Frame struct {
	Bytes      []byte
	FrameIndex int64
	Timestamp  time.Time
	// ContentType is "image/jpeg" or "image/png", best-effort sniffed
	// from the source (§6: "body bytes assumed JPEG/PNG").
	ContentType string
}

// Source fetches frames for one camera. Implementations must be safe
// for the single camera worker that owns them to call repeatedly; they
// are not required to be safe for concurrent use across cameras.
type Source interface {
	// FetchFrame retrieves the next frame, honoring ctx's deadline.
	// Errors are apperr.Error values of kind Transient (Unreachable or
	// Timeout), Permanent (Decode), or Input (Unsupported) per §4.3.
	FetchFrame(ctx context.Context) (Frame, error)
}

// ForURI dispatches to the adapter matching the URI scheme, following
// §4.3's recognized schemes.
func ForURI(videoSourceURI string) (Source, error) {
	u, err := url.Parse(videoSourceURI)
	if err != nil || u.Scheme == "" {
		return NewFileSource(videoSourceURI), nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileSource(u.Path), nil
	case "http", "https":
		return NewHTTPSource(videoSourceURI), nil
	case "rtsp":
		return NewRTSPSource(videoSourceURI), nil
	default:
		return nil, apperr.New(component, apperr.KindInput, "unrecognized video source scheme: "+u.Scheme)
	}
}
