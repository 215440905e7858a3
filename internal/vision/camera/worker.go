// Package camera implements the Camera Worker & Scheduler (C6): one
// long-running loop per registered Camera driving
// framesource -> cropper -> classifier (spec.md §4.6).
package camera

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/vision/classifier"
	"github.com/brigadeops/core/internal/vision/cropper"
	"github.com/brigadeops/core/internal/vision/framesource"
)

const component = "camera"

// Worker drives one camera's capture loop. Each Worker owns its own
// cancellation handle, following §9's "explicit task supervisor: a
// bounded pool per camera, each task owning its cancellation handle."
type Worker struct {
	camera     models.Camera
	source     framesource.Source
	dispatcher *classifier.Dispatcher
	onTick     func(models.Camera, int64, time.Time)
	onDegrade  func(models.Camera, error)
	cfg        config.Snapshot
	log        *logrus.Logger
}

// NewWorker constructs a Worker for a single camera. onTick is called
// after a successful fetch+dispatch cycle so the supervisor can
// persist LastCaptureAt/LastFrameIndex; onDegrade is called on fetch
// failure so the supervisor can persist the degraded flag — neither
// callback touches the database directly from within Worker, keeping
// this package free of store coupling for unit tests.
func NewWorker(cam models.Camera, source framesource.Source, dispatcher *classifier.Dispatcher, cfg config.Snapshot, log *logrus.Logger, onTick func(models.Camera, int64, time.Time), onDegrade func(models.Camera, error)) *Worker {
	return &Worker{
		camera:     cam,
		source:     source,
		dispatcher: dispatcher,
		onTick:     onTick,
		onDegrade:  onDegrade,
		cfg:        cfg,
		log:        log,
	}
}

// Run executes the §4.6 loop until ctx is cancelled. Cancellation is
// honored between ticks (§5); crops already handed to the dispatcher
// keep running on their own goroutines until they finish or time out,
// and Run does not wait for them.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.CaptureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick performs one capture cycle. Over-running ticks are not
// backlogged: time.Ticker already drops missed ticks while the
// previous one is still executing, satisfying §4.6 step 1's "skip
// missed ticks rather than backlogging."
func (w *Worker) tick(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, w.cfg.VideoSourceTimeout)
	defer cancel()

	frame, err := w.source.FetchFrame(fetchCtx)
	if err != nil {
		w.log.WithError(err).WithField("camera_id", w.camera.ID).Warn("frame fetch failed, camera degraded")
		if w.onDegrade != nil {
			w.onDegrade(w.camera, err)
		}
		return
	}

	specs, frameW, frameH, err := parseCropSpecs(w.camera.CropJSON)
	if err != nil {
		w.log.WithError(err).WithField("camera_id", w.camera.ID).Warn("crop-json parse failed")
		return
	}

	crops, warnings, err := cropper.Extract(frame.Bytes, frameW, frameH, specs, frame.ContentType)
	if err != nil {
		w.log.WithError(err).WithField("camera_id", w.camera.ID).Warn("crop extraction failed")
		return
	}
	for _, wrn := range warnings {
		w.log.WithFields(logrus.Fields{"camera_id": w.camera.ID, "table": wrn.JSONTableID}).Warn(wrn.Reason)
	}

	for _, c := range crops {
		// Non-blocking: the dispatcher's in-flight cap enforces
		// backpressure internally (§4.6 step 3). Each crop is
		// dispatched on its own goroutine so a slow classifier call for
		// one table never delays submitting the rest of this frame's
		// crops.
		crop := c
		go func() {
			submitCtx, cancel := context.WithTimeout(context.Background(), w.cfg.AttemptTimeout*time.Duration(w.cfg.MaxDispatchAttempts+1))
			defer cancel()
			if err := w.dispatcher.Submit(submitCtx, w.camera, w.camera.CameraKey, crop, frame.FrameIndex); err != nil {
				w.log.WithError(err).WithFields(logrus.Fields{
					"camera_id": w.camera.ID, "table": crop.JSONTableID,
				}).Warn("dispatch failed")
			}
		}()
	}

	if w.onTick != nil {
		w.onTick(w.camera, frame.FrameIndex, frame.Timestamp)
	}
}

// cropJSONShape mirrors the §6 crop-JSON schema.
type cropJSONShape struct {
	FrameWidth  int `json:"frame_width"`
	FrameHeight int `json:"frame_height"`
	Tables      []struct {
		ID           any    `json:"id"`
		RotatedBBox  rbbox  `json:"rotated_bbox"`
		CropFile     string `json:"crop_file"`
		CropSize     *struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"crop_size"`
	} `json:"tables"`
}

type rbbox struct {
	Center  [2]float64    `json:"center"`
	Size    [2]float64    `json:"size"`
	Angle   float64       `json:"angle"`
	Corners [4][2]float64 `json:"corners"`
}

func parseCropSpecs(raw models.JSONMap) ([]cropper.CropSpec, int, int, error) {
	b, err := json.Marshal(map[string]any(raw))
	if err != nil {
		return nil, 0, 0, apperr.Wrap(component, apperr.KindInput, "marshal crop json", err)
	}
	var shape cropJSONShape
	if err := json.Unmarshal(b, &shape); err != nil {
		return nil, 0, 0, apperr.Wrap(component, apperr.KindInput, "unmarshal crop json", err)
	}

	specs := make([]cropper.CropSpec, 0, len(shape.Tables))
	for _, t := range shape.Tables {
		spec := cropper.CropSpec{
			JSONTableID: jsonTableIDString(t.ID),
			CropFile:    t.CropFile,
			BBox: cropper.RotatedBBox{
				Center:  t.RotatedBBox.Center,
				Size:    t.RotatedBBox.Size,
				Angle:   t.RotatedBBox.Angle,
				Corners: t.RotatedBBox.Corners,
			},
		}
		if t.CropSize != nil {
			spec.CropSize = [2]int{t.CropSize.Width, t.CropSize.Height}
		}
		specs = append(specs, spec)
	}
	return specs, shape.FrameWidth, shape.FrameHeight, nil
}

func jsonTableIDString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
