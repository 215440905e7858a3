package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/vision/cropper"
)

type fakeTableUpdater struct {
	dispatchLog      models.CropDispatchLog
	duplicate        bool
	appendErr        error
	markStatusCalls  []models.DispatchStatus
	predictionCalls  int
	updateStateCalls int
	updateStateErr   error
}

func (f *fakeTableUpdater) AppendCropDispatch(uuid.UUID, string, int64) (models.CropDispatchLog, bool, error) {
	if f.appendErr != nil {
		return models.CropDispatchLog{}, false, f.appendErr
	}
	if f.dispatchLog.ID == uuid.Nil {
		f.dispatchLog.ID = uuid.New()
	}
	return f.dispatchLog, f.duplicate, nil
}

func (f *fakeTableUpdater) MarkDispatchStatus(_ uuid.UUID, status models.DispatchStatus, _ int, _ string) error {
	f.markStatusCalls = append(f.markStatusCalls, status)
	return nil
}

func (f *fakeTableUpdater) RecordDispatchPrediction(uuid.UUID, *uuid.UUID, string, float64) error {
	f.predictionCalls++
	return nil
}

func (f *fakeTableUpdater) UpdateTableState(uuid.UUID, models.TableState, float64, models.StateSource, string) (models.TableStateLog, bool, error) {
	f.updateStateCalls++
	return models.TableStateLog{}, true, f.updateStateErr
}

func testConfig() config.Snapshot {
	return config.Snapshot{
		MaxInFlightPerCamera: 4,
		MaxDispatchAttempts:  2,
		AttemptTimeout:       2000000000, // 2s, ample for httptest round trips
	}
}

func discardLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDispatcherSubmitAppliesSuccessfulPrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"occupied","confidence":0.9}`))
	}))
	defer server.Close()

	fu := &fakeTableUpdater{}
	mapper := NewMapper()
	camID, tableID := uuid.New(), uuid.New()
	mapper.Install(camID, map[string]uuid.UUID{"t1": tableID})

	d := New(fu, NewClient(server.URL), mapper, discardLog(), testConfig())
	camera := models.Camera{ID: camID, CameraKey: "cam1"}
	crop := cropper.TableCrop{JSONTableID: "t1", ImageBytes: []byte("jpeg"), ContentType: "image/jpeg"}

	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, fu.predictionCalls)
	assert.Equal(t, 1, fu.updateStateCalls)
	assert.Contains(t, fu.markStatusCalls, models.DispatchSucceeded)
}

func TestDispatcherSubmitShortCircuitsOnDuplicateDispatch(t *testing.T) {
	fu := &fakeTableUpdater{duplicate: true}
	d := New(fu, NewClient("http://unused"), NewMapper(), discardLog(), testConfig())
	camera := models.Camera{ID: uuid.New(), CameraKey: "cam1"}
	crop := cropper.TableCrop{JSONTableID: "t1", ImageBytes: []byte("jpeg")}

	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, fu.predictionCalls)
	assert.Equal(t, 0, fu.updateStateCalls)
}

func TestDispatcherSubmitDropsUnmappedTablePrediction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"label":"occupied","confidence":0.9}`))
	}))
	defer server.Close()

	fu := &fakeTableUpdater{}
	// No mapping installed for this camera/table: Lookup will miss.
	d := New(fu, NewClient(server.URL), NewMapper(), discardLog(), testConfig())
	camera := models.Camera{ID: uuid.New(), CameraKey: "cam1"}
	crop := cropper.TableCrop{JSONTableID: "unmapped", ImageBytes: []byte("jpeg")}

	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, fu.predictionCalls)
	assert.Contains(t, fu.markStatusCalls, models.DispatchFailed)
}

func TestDispatcherSubmitDropsPermanentFailureWithoutPropagating(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	fu := &fakeTableUpdater{}
	d := New(fu, NewClient(server.URL), NewMapper(), discardLog(), testConfig())
	camera := models.Camera{ID: uuid.New(), CameraKey: "cam1"}
	crop := cropper.TableCrop{JSONTableID: "t1", ImageBytes: []byte("jpeg")}

	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.NoError(t, err) // permanent classifier failures are dropped, not surfaced
	assert.Contains(t, fu.markStatusCalls, models.DispatchFailed)
}

func TestDispatcherSubmitRespectsBackpressureCap(t *testing.T) {
	fu := &fakeTableUpdater{}
	cfg := testConfig()
	cfg.MaxInFlightPerCamera = 1
	d := New(fu, NewClient("http://unused"), NewMapper(), discardLog(), cfg)
	camID := uuid.New()

	// Manually occupy the single in-flight slot.
	d.mu.Lock()
	d.inFlight[camID] = 1
	d.mu.Unlock()

	camera := models.Camera{ID: camID}
	crop := cropper.TableCrop{JSONTableID: "t1", ImageBytes: []byte("jpeg")}
	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.NoError(t, err) // dropped silently, not an error
	assert.Equal(t, 0, fu.predictionCalls)
}

func TestDispatcherSubmitPropagatesAppendCropDispatchFailure(t *testing.T) {
	fu := &fakeTableUpdater{appendErr: apperr.New("store", apperr.KindPermanent, "db down")}
	d := New(fu, NewClient("http://unused"), NewMapper(), discardLog(), testConfig())
	camera := models.Camera{ID: uuid.New()}
	crop := cropper.TableCrop{JSONTableID: "t1", ImageBytes: []byte("jpeg")}

	err := d.Submit(context.Background(), camera, "video1", crop, 1)
	require.Error(t, err)
}
