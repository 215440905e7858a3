package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// AppendCropDispatch inserts a queued CropDispatchLog row keyed by
// (camera, jsonTableID, frameIndex). If a row already exists for that
// key, duplicate is true and the existing row is returned — the
// dispatcher relies on this for idempotence (§4.1, §4.5).
func (s *Store) AppendCropDispatch(cameraID uuid.UUID, jsonTableID string, frameIndex int64) (row models.CropDispatchLog, duplicate bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing := models.CropDispatchLog{}
		lookupErr := tx.Where("camera_id = ? AND json_table_id = ? AND frame_index = ?",
			cameraID, jsonTableID, frameIndex).First(&existing).Error
		if lookupErr == nil {
			row = existing
			duplicate = true
			return nil
		}
		if lookupErr != gorm.ErrRecordNotFound {
			return apperr.Wrap(component, apperr.KindPermanent, "lookup crop dispatch", lookupErr)
		}

		now := time.Now()
		row = models.CropDispatchLog{
			ID:          uuid.New(),
			CameraID:    cameraID,
			JSONTableID: jsonTableID,
			FrameIndex:  frameIndex,
			Status:      models.DispatchQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&row).Error; err != nil {
			// A unique-constraint violation here means a concurrent
			// dispatcher won the race between our lookup and insert;
			// treat it the same as a duplicate rather than failing.
			if reErr := tx.Where("camera_id = ? AND json_table_id = ? AND frame_index = ?",
				cameraID, jsonTableID, frameIndex).First(&existing).Error; reErr == nil {
				row = existing
				duplicate = true
				return nil
			}
			return apperr.Wrap(component, apperr.KindPermanent, "insert crop dispatch", err)
		}
		return nil
	})
	if err != nil {
		return models.CropDispatchLog{}, false, err
	}
	return row, duplicate, nil
}

// MarkDispatchStatus transitions a CropDispatchLog row's status and
// records the attempt count / last error, following the
// queued -> dispatched -> succeeded|failed lifecycle of §4.5.
func (s *Store) MarkDispatchStatus(id uuid.UUID, status models.DispatchStatus, attempts int, lastError string) error {
	updates := map[string]any{
		"status":     status,
		"attempts":   attempts,
		"last_error": lastError,
		"updated_at": time.Now(),
	}
	if err := s.db.Model(&models.CropDispatchLog{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "mark dispatch status", err)
	}
	return nil
}

// RecordDispatchPrediction stores the classifier's result on the log
// row once a dispatch succeeds, ahead of applying it through C2.
func (s *Store) RecordDispatchPrediction(id uuid.UUID, tableID *uuid.UUID, label string, confidence float64) error {
	updates := map[string]any{
		"table_id":   tableID,
		"label":      label,
		"confidence": confidence,
		"updated_at": time.Now(),
	}
	if err := s.db.Model(&models.CropDispatchLog{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "record dispatch prediction", err)
	}
	return nil
}

// GetCamera fetches a camera by id.
func (s *Store) GetCamera(id uuid.UUID) (models.Camera, error) {
	var cam models.Camera
	if err := s.db.Where("id = ?", id).First(&cam).Error; err != nil {
		return models.Camera{}, notFoundOr(err, "camera not found")
	}
	return cam, nil
}

// ListCameras returns every camera registered for a restaurant, used
// by the camera supervisor (C6) to spin up one worker per camera.
func (s *Store) ListCameras(restaurantID uuid.UUID) ([]models.Camera, error) {
	var cams []models.Camera
	if err := s.db.Where("restaurant_id = ?", restaurantID).Find(&cams).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list cameras", err)
	}
	return cams, nil
}

// UpdateCameraCapture records the last capture timestamp/frame index
// after a successful tick (§4.6 step 4).
func (s *Store) UpdateCameraCapture(id uuid.UUID, frameIndex int64, at time.Time) error {
	return s.db.Model(&models.Camera{}).Where("id = ?", id).Updates(map[string]any{
		"last_capture_at":  at,
		"last_frame_index": frameIndex,
		"degraded":         false,
		"degraded_reason":  "",
		"updated_at":       time.Now(),
	}).Error
}

// MarkCameraDegraded flips the per-camera degraded flag (§4.6 step 5).
func (s *Store) MarkCameraDegraded(id uuid.UUID, reason string) error {
	err := s.db.Model(&models.Camera{}).Where("id = ?", id).Updates(map[string]any{
		"degraded":        true,
		"degraded_reason": reason,
		"updated_at":      time.Now(),
	}).Error
	if err == nil {
		s.live.Broadcast("camera_degraded", map[string]any{"camera_id": id, "reason": reason})
	}
	return err
}

// InstallCropJSON updates a camera's crop-JSON mapping and its
// json-table-id -> physical Table mapping together. §5: "Caches ...
// are invalidated on crop-JSON update" — the caller,
// camera.Supervisor.InstallCropJSON, restarts the camera's worker,
// which drops and re-hydrates the classifier.Mapper entry for this
// camera; Store itself holds no such cache.
func (s *Store) InstallCropJSON(id uuid.UUID, cropJSON models.JSONMap, tableMapping map[string]uuid.UUID) error {
	raw := make(models.JSONMap, len(tableMapping))
	for jsonID, tableID := range tableMapping {
		raw[jsonID] = tableID.String()
	}
	return s.db.Model(&models.Camera{}).Where("id = ?", id).Updates(map[string]any{
		"crop_json":     cropJSON,
		"table_mapping": raw,
		"updated_at":    time.Now(),
	}).Error
}
