package framesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/apperr"
)

func TestForURIDispatchesByScheme(t *testing.T) {
	s, err := ForURI("http://example.com/frame.jpg")
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, s)

	s, err = ForURI("rtsp://example.com/stream")
	require.NoError(t, err)
	assert.IsType(t, &RTSPSource{}, s)

	s, err = ForURI("/tmp/frame.jpg")
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, s)

	_, err = ForURI("ftp://example.com/frame.jpg")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
}

func TestFileSourceFetchFrameIncrementsFrameIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	// Minimal bytes: FF D8 FF is the JPEG signature, so sniffImageType
	// reports image/jpeg; the frame is never decoded here.
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644))

	src := NewFileSource(path)
	f1, err := src.FetchFrame(context.Background())
	require.NoError(t, err)
	f2, err := src.FetchFrame(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), f1.FrameIndex)
	assert.Equal(t, int64(1), f2.FrameIndex)
}

func TestFileSourceMissingFileIsTransient(t *testing.T) {
	src := NewFileSource("/no/such/file.jpg")
	_, err := src.FetchFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestFileSourceHonorsCancelledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8}, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewFileSource(path)
	_, err := src.FetchFrame(ctx)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestHTTPSourceFetchFrameReadsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL)
	f, err := src.FetchFrame(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, f.Bytes)
	assert.Equal(t, int64(0), f.FrameIndex)
}

func TestHTTPSourceClassifiesServerErrorAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL)
	_, err := src.FetchFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestHTTPSourceClassifiesClientErrorAsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL)
	_, err := src.FetchFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermanent, apperr.KindOf(err))
}

func TestRTSPSourceReportsUnsupported(t *testing.T) {
	src := NewRTSPSource("rtsp://example.com/stream")
	_, err := src.FetchFrame(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInput, apperr.KindOf(err))
}

func TestHTTPSourceTimesOutOnSlowServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	src := NewHTTPSource(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := src.FetchFrame(ctx)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}
