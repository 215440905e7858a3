package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/apperr"
)

func TestClientSubmitDecodesSuccessfulPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"label":"occupied","confidence":0.87}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	pred, err := c.Submit(context.Background(), Request{CameraID: "cam1", JSONTableID: "t1", ImageBytes: []byte("jpeg")}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "occupied", pred.Label)
	assert.Equal(t, 0.87, pred.Confidence)
}

func TestClientSubmitClassifiesAuthErrorsAsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Submit(context.Background(), Request{ImageBytes: []byte("x")}, time.Second)
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermanent, apperr.KindOf(err))
}

func TestClientSubmitClassifiesRateLimitAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Submit(context.Background(), Request{ImageBytes: []byte("x")}, time.Second)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestClientSubmitClassifiesServerErrorAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Submit(context.Background(), Request{ImageBytes: []byte("x")}, time.Second)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTransient, apperr.KindOf(err))
}

func TestClientSubmitRejectsOutOfRangeConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"occupied","confidence":1.5}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	_, err := c.Submit(context.Background(), Request{ImageBytes: []byte("x")}, time.Second)
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermanent, apperr.KindOf(err))
}
