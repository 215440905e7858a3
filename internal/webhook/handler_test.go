package webhook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

type fakeTableStateUpdater struct {
	applied bool
	err     error
	calls   int
}

func (f *fakeTableStateUpdater) UpdateTableState(uuid.UUID, models.TableState, float64, models.StateSource, string) (models.TableStateLog, bool, error) {
	f.calls++
	return models.TableStateLog{}, f.applied, f.err
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(discard{})
	r := gin.New()
	return r
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestTableStateAppliesValidPayload(t *testing.T) {
	fu := &fakeTableStateUpdater{applied: true}
	log := logrus.New()
	log.SetOutput(discard{})
	h := NewHandler(fu, log)
	r := newTestEngine()
	h.Register(r)

	body := map[string]any{
		"restaurant_id": uuid.New(),
		"tables": []map[string]any{
			{"table_id": uuid.New(), "predicted_state": "occupied", "state_confidence": 0.9},
		},
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/ml/table-state", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fu.calls)
}

func TestTableStateRejectsMalformedPayload(t *testing.T) {
	fu := &fakeTableStateUpdater{}
	log := logrus.New()
	log.SetOutput(discard{})
	h := NewHandler(fu, log)
	r := newTestEngine()
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/ml/table-state", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, fu.calls)
}

func TestTableStateReportsInvariantRejectionWithoutFailingTheRequest(t *testing.T) {
	fu := &fakeTableStateUpdater{err: apperr.New("test", apperr.KindInvariant, "transition rejected")}
	log := logrus.New()
	log.SetOutput(discard{})
	h := NewHandler(fu, log)
	r := newTestEngine()
	h.Register(r)

	body := map[string]any{
		"restaurant_id": uuid.New(),
		"tables": []map[string]any{
			{"table_id": uuid.New(), "predicted_state": "occupied", "state_confidence": 0.9},
		},
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/ml/table-state", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	results := resp["results"].([]any)
	require.Len(t, results, 1)
	row := results[0].(map[string]any)
	assert.Equal(t, false, row["applied"])
}

func TestTableStatePropagatesUnexpectedFailureAsServerError(t *testing.T) {
	fu := &fakeTableStateUpdater{err: apperr.New("test", apperr.KindPermanent, "db exploded")}
	log := logrus.New()
	log.SetOutput(discard{})
	h := NewHandler(fu, log)
	r := newTestEngine()
	h.Register(r)

	body := map[string]any{
		"restaurant_id": uuid.New(),
		"tables": []map[string]any{
			{"table_id": uuid.New(), "predicted_state": "occupied", "state_confidence": 0.9},
		},
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/ml/table-state", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
