package framesource

import (
	"context"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/brigadeops/core/internal/apperr"
)

// FileSource reads a single static image file repeatedly, assigning a
// monotonic per-camera frame index on each call (§4.3: "file:// / bare
// path — read the referenced image; frame-index = monotonic counter
// per camera").
type FileSource struct {
	path    string
	counter int64
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) FetchFrame(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, apperr.Wrap(component, apperr.KindTransient, "timeout before read", ctx.Err())
	default:
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Frame{}, apperr.Wrap(component, apperr.KindTransient, "unreachable: file not found", err)
		}
		return Frame{}, apperr.Wrap(component, apperr.KindPermanent, "decode: read failed", err)
	}

	idx := atomic.AddInt64(&f.counter, 1) - 1
	return Frame{
		Bytes:       data,
		FrameIndex:  idx,
		Timestamp:   time.Now(),
		ContentType: sniffImageType(data),
	}, nil
}

func sniffImageType(data []byte) string {
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg", "image/png":
		return ct
	default:
		return "image/jpeg"
	}
}
