package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/brigadeops/core/internal/apperr"
)

const component = "classifier"

// Prediction is the classifier's decoded response (§6).
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Request bundles everything needed to build the outbound multipart
// request (§6: "multipart/form-data with file ... camera_id, table_id,
// frame_index, video_name").
type Request struct {
	CameraID    string
	JSONTableID string
	FrameIndex  int64
	VideoName   string
	ImageBytes  []byte
	ContentType string
}

// Client submits crops to the external classifier endpoint over HTTP.
// Modeled on services/midtrans_service.go: one long-lived *http.Client
// with an explicit per-call timeout, no package-level default client.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
}

// Submit performs exactly one HTTP attempt (retry is the dispatcher's
// responsibility, §4.5) and classifies the outcome into an apperr.Kind.
func (c *Client) Submit(ctx context.Context, req Request, attemptTimeout time.Duration) (Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return Prediction{}, apperr.Wrap(component, apperr.KindPermanent, "encode multipart body", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return Prediction{}, apperr.Wrap(component, apperr.KindPermanent, "build request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Prediction{}, apperr.Wrap(component, apperr.KindTransient, "attempt timeout", ctx.Err())
		}
		return Prediction{}, apperr.Wrap(component, apperr.KindTransient, "connect failed", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}

func decodeResponse(resp *http.Response) (Prediction, error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Prediction{}, apperr.New(component, apperr.KindPermanent, fmt.Sprintf("auth error: %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return Prediction{}, apperr.New(component, apperr.KindTransient, "429 rate limited")
	case resp.StatusCode >= 500:
		return Prediction{}, apperr.New(component, apperr.KindTransient, fmt.Sprintf("server error: %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return Prediction{}, apperr.New(component, apperr.KindPermanent, fmt.Sprintf("client error: %d", resp.StatusCode))
	}

	var pred Prediction
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Prediction{}, apperr.Wrap(component, apperr.KindTransient, "read response body", err)
	}
	if err := json.Unmarshal(data, &pred); err != nil {
		return Prediction{}, apperr.Wrap(component, apperr.KindPermanent, "decode response", err)
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return Prediction{}, apperr.New(component, apperr.KindPermanent, "confidence out of range")
	}
	return pred, nil
}

func encodeMultipart(req Request) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	filename := req.JSONTableID + ".jpg"
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.ImageBytes); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"camera_id":   req.CameraID,
		"table_id":    req.JSONTableID,
		"frame_index": fmt.Sprintf("%d", req.FrameIndex),
		"video_name":  req.VideoName,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
