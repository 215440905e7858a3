package framesource

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brigadeops/core/internal/apperr"
)

// HTTPSource GETs a frame from an http(s):// endpoint, following
// §4.3's "GET with deadline; body bytes assumed JPEG/PNG". Modeled on
// services/midtrans_service.go's pattern of one long-lived *http.Client
// with an explicit timeout per call rather than relying on the
// zero-value default client.
type HTTPSource struct {
	uri        string
	httpClient *http.Client
	counter    int64
}

func NewHTTPSource(uri string) *HTTPSource {
	return &HTTPSource{
		uri:        uri,
		httpClient: &http.Client{},
	}
}

func (h *HTTPSource) FetchFrame(ctx context.Context) (Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.uri, nil)
	if err != nil {
		return Frame{}, apperr.Wrap(component, apperr.KindInput, "malformed video source URI", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, apperr.Wrap(component, apperr.KindTransient, "timeout", ctx.Err())
		}
		return Frame{}, apperr.Wrap(component, apperr.KindTransient, "unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Frame{}, apperr.New(component, apperr.KindTransient, "source returned 5xx")
	}
	if resp.StatusCode >= 400 {
		return Frame{}, apperr.New(component, apperr.KindPermanent, "source returned 4xx")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Frame{}, apperr.Wrap(component, apperr.KindPermanent, "decode: read body failed", err)
	}

	idx := atomic.AddInt64(&h.counter, 1) - 1
	return Frame{
		Bytes:       body,
		FrameIndex:  idx,
		Timestamp:   time.Now(),
		ContentType: sniffImageType(body),
	}, nil
}
