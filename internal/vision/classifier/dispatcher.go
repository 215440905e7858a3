// Package classifier implements the Classifier Dispatcher (C5):
// submitting crops to the external classifier with retry,
// backpressure, and idempotent de-duplication, and folding the result
// back through the Table State Machine (spec.md §4.5).
package classifier

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/vision/cropper"
)

// TableUpdater is the narrow slice of *store.Store the dispatcher
// needs; declared as an interface so classifier tests can fake it
// without a database.
type TableUpdater interface {
	AppendCropDispatch(cameraID uuid.UUID, jsonTableID string, frameIndex int64) (models.CropDispatchLog, bool, error)
	MarkDispatchStatus(id uuid.UUID, status models.DispatchStatus, attempts int, lastError string) error
	RecordDispatchPrediction(id uuid.UUID, tableID *uuid.UUID, label string, confidence float64) error
	UpdateTableState(tableID uuid.UUID, next models.TableState, confidence float64, source models.StateSource, provenance string) (models.TableStateLog, bool, error)
}

// ModelID identifies the classifier build for TableStateLog provenance.
const ModelID = "table-classifier-v1"

// Dispatcher enforces the per-camera in-flight cap, dedupes via the
// store's unique (camera, json_table_id, frame_index) key, retries
// transient failures, and applies successful predictions through C2.
type Dispatcher struct {
	store   TableUpdater
	client  *Client
	mapper  *Mapper
	log     *logrus.Logger
	cfg     config.Snapshot
	limiter *rate.Limiter

	mu       sync.Mutex
	inFlight map[uuid.UUID]int
}

// New constructs a Dispatcher. limiter bounds the aggregate submission
// rate across every camera sharing this dispatcher, following
// middlewares/rate_limiter.go's token-bucket-per-resource shape
// (there: per-IP; here: per dispatcher pool).
func New(store TableUpdater, client *Client, mapper *Mapper, log *logrus.Logger, cfg config.Snapshot) *Dispatcher {
	return &Dispatcher{
		store:    store,
		client:   client,
		mapper:   mapper,
		log:      log,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(50), 50),
		inFlight: make(map[uuid.UUID]int),
	}
}

// Submit dispatches one crop. It blocks the caller for the shared rate
// limiter, the per-attempt timeouts and the backoff delays between
// retries, all bounded by ctx; backpressure drops are immediate and do
// not retry (§4.5).
func (d *Dispatcher) Submit(ctx context.Context, camera models.Camera, videoName string, crop cropper.TableCrop, frameIndex int64) error {
	if !d.tryAcquire(camera.ID) {
		d.log.WithFields(logrus.Fields{
			"camera_id": camera.ID,
			"table_id":  crop.JSONTableID,
		}).Warn("backpressure: in-flight cap reached, dropping crop")
		return nil
	}
	defer d.release(camera.ID)

	logRow, duplicate, err := d.store.AppendCropDispatch(camera.ID, crop.JSONTableID, frameIndex)
	if err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "append crop dispatch", err)
	}
	if duplicate {
		d.log.WithFields(logrus.Fields{
			"camera_id": camera.ID,
			"table_id":  crop.JSONTableID,
			"frame":     frameIndex,
		}).Debug("duplicate crop dispatch short-circuited to success")
		return nil
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(component, apperr.KindTransient, "rate limiter wait cancelled", err)
	}

	_ = d.store.MarkDispatchStatus(logRow.ID, models.DispatchDispatched, 0, "")

	req := Request{
		CameraID:    camera.CameraKey,
		JSONTableID: crop.JSONTableID,
		FrameIndex:  frameIndex,
		VideoName:   videoName,
		ImageBytes:  crop.ImageBytes,
		ContentType: crop.ContentType,
	}

	pred, attempts, submitErr := withRetry(ctx, d.cfg.MaxDispatchAttempts, func(attemptCtx context.Context) (Prediction, error) {
		return d.client.Submit(attemptCtx, req, d.cfg.AttemptTimeout)
	})

	if submitErr != nil {
		_ = d.store.MarkDispatchStatus(logRow.ID, models.DispatchFailed, attempts, submitErr.Error())
		if apperr.KindOf(submitErr) == apperr.KindPermanent {
			d.log.WithError(submitErr).WithFields(logrus.Fields{
				"camera_id": camera.ID, "table_id": crop.JSONTableID,
			}).Warn("classifier dispatch permanently failed, prediction dropped")
			return nil
		}
		return submitErr
	}

	tableID, ok := d.mapper.Lookup(camera.ID, crop.JSONTableID)
	if !ok {
		_ = d.store.MarkDispatchStatus(logRow.ID, models.DispatchFailed, attempts, "unmapped table")
		d.log.WithFields(logrus.Fields{"camera_id": camera.ID, "table_id": crop.JSONTableID}).
			Warn("unmapped table, dropping prediction")
		return nil
	}

	_ = d.store.RecordDispatchPrediction(logRow.ID, &tableID, pred.Label, pred.Confidence)
	_ = d.store.MarkDispatchStatus(logRow.ID, models.DispatchSucceeded, attempts, "")

	_, _, fsmErr := d.store.UpdateTableState(tableID, models.TableState(pred.Label), pred.Confidence, models.SourceML, ModelID)
	if fsmErr != nil && apperr.KindOf(fsmErr) != apperr.KindInvariant {
		d.log.WithError(fsmErr).WithField("table_id", tableID).Warn("failed to apply classifier prediction")
		return fsmErr
	}
	return nil
}

func (d *Dispatcher) tryAcquire(cameraID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight[cameraID] >= d.cfg.MaxInFlightPerCamera {
		return false
	}
	d.inFlight[cameraID]++
	return true
}

func (d *Dispatcher) release(cameraID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight[cameraID]--
	if d.inFlight[cameraID] <= 0 {
		delete(d.inFlight, cameraID)
	}
}
