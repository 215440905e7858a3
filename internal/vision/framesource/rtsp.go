package framesource

import (
	"context"

	"github.com/brigadeops/core/internal/apperr"
)

// RTSPSource is the required rtsp:// interface. §4.3 allows the
// implementation to stub by decoding a single keyframe per invocation,
// and requires the core to tolerate a stub that returns Unsupported.
// This build has no RTSP/gstreamer decoder wired in (the pack's
// RTSP-capable dependency, tinyzimmer/go-gst, lives in
// e7canasta-orion-care-sensor/modules/stream-capture as an indirect,
// platform-specific cgo binding we cannot pull into a database-less
// unit-testable core); FetchFrame always reports Unsupported so camera
// workers degrade gracefully rather than fail opaquely.
type RTSPSource struct {
	uri string
}

func NewRTSPSource(uri string) *RTSPSource {
	return &RTSPSource{uri: uri}
}

func (r *RTSPSource) FetchFrame(ctx context.Context) (Frame, error) {
	return Frame{}, apperr.New(component, apperr.KindInput, "unsupported: rtsp source requires a decoder build")
}
