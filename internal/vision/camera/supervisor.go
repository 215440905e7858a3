package camera

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/vision/classifier"
	"github.com/brigadeops/core/internal/vision/framesource"
)

// SupervisorStore is the store slice the supervisor needs to persist
// per-tick camera state.
type SupervisorStore interface {
	UpdateCameraCapture(id uuid.UUID, frameIndex int64, at time.Time) error
	MarkCameraDegraded(id uuid.UUID, reason string) error
	ListCameras(restaurantID uuid.UUID) ([]models.Camera, error)
	GetCamera(id uuid.UUID) (models.Camera, error)
	InstallCropJSON(id uuid.UUID, cropJSON models.JSONMap, tableMapping map[string]uuid.UUID) error
}

// Supervisor owns one Worker per registered Camera: parallel workers,
// one per camera, cooperative internally, failures isolated per task
// (§4.6, §5). It can pause/resume all workers and reacts to camera
// registry changes (register/deregister, crop-JSON reinstall).
type Supervisor struct {
	store      SupervisorStore
	dispatcher *classifier.Dispatcher
	mapper     *classifier.Mapper
	cfg        config.Snapshot
	log        *logrus.Logger

	mu      sync.Mutex
	cancels map[uuid.UUID]cancelEntry
	paused  map[uuid.UUID]struct{} // restaurant ids Pause stopped, for Resume
	wg      sync.WaitGroup
}

// cancelEntry remembers which restaurant a running camera belongs to,
// so Pause can later tell Resume which restaurants to re-StartAll.
type cancelEntry struct {
	cancel       context.CancelFunc
	restaurantID uuid.UUID
}

func NewSupervisor(store SupervisorStore, dispatcher *classifier.Dispatcher, mapper *classifier.Mapper, cfg config.Snapshot, log *logrus.Logger) *Supervisor {
	return &Supervisor{
		store:      store,
		dispatcher: dispatcher,
		mapper:     mapper,
		cfg:        cfg,
		log:        log,
		cancels:    make(map[uuid.UUID]cancelEntry),
		paused:     make(map[uuid.UUID]struct{}),
	}
}

// StartAll launches one Worker per camera currently registered for a
// restaurant. Call Register for cameras added afterward.
func (s *Supervisor) StartAll(ctx context.Context, restaurantID uuid.UUID) error {
	cams, err := s.store.ListCameras(restaurantID)
	if err != nil {
		return err
	}
	for _, cam := range cams {
		s.Register(ctx, cam)
	}
	return nil
}

// Register starts a Worker for a single camera, replacing any existing
// one for the same camera id (e.g. after a crop-JSON reinstall that
// the caller wants to pick up from a clean state).
func (s *Supervisor) Register(ctx context.Context, cam models.Camera) {
	s.Deregister(cam.ID)

	source, err := framesource.ForURI(cam.VideoSourceURI)
	if err != nil {
		s.log.WithError(err).WithField("camera_id", cam.ID).Error("cannot start camera worker: bad video source")
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancels[cam.ID] = cancelEntry{cancel: cancel, restaurantID: cam.RestaurantID}
	delete(s.paused, cam.RestaurantID)
	s.mu.Unlock()

	if s.mapper != nil {
		s.mapper.InstallFromJSON(cam.ID, cam.TableMapping)
	}

	worker := NewWorker(cam, source, s.dispatcher, s.cfg, s.log,
		func(c models.Camera, frameIndex int64, at time.Time) {
			_ = s.store.UpdateCameraCapture(c.ID, frameIndex, at)
		},
		func(c models.Camera, cause error) {
			_ = s.store.MarkCameraDegraded(c.ID, cause.Error())
		},
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		worker.Run(workerCtx)
	}()
}

// Deregister stops the worker for a camera, if running, and waits for
// its current tick to reach a safe point before returning is NOT
// guaranteed here (cancellation is cooperative, §5); use Shutdown to
// wait for full drain.
func (s *Supervisor) Deregister(cameraID uuid.UUID) {
	s.mu.Lock()
	entry, ok := s.cancels[cameraID]
	if ok {
		delete(s.cancels, cameraID)
	}
	s.mu.Unlock()
	if ok {
		entry.cancel()
	}
	if s.mapper != nil {
		s.mapper.Invalidate(cameraID)
	}
}

// Pause stops every worker, remembering which restaurants had workers
// running so Resume can relaunch them from the registry.
func (s *Supervisor) Pause() {
	s.mu.Lock()
	for _, entry := range s.cancels {
		entry.cancel()
		s.paused[entry.restaurantID] = struct{}{}
	}
	s.cancels = make(map[uuid.UUID]cancelEntry)
	s.mu.Unlock()
}

// Resume re-registers every camera for every restaurant Pause stopped,
// the other half of §4.6's "a supervisor can pause/resume all workers".
// Cameras registered or deregistered individually since Pause are
// reflected: Resume re-lists the registry rather than replaying a
// stale snapshot.
func (s *Supervisor) Resume(ctx context.Context) error {
	s.mu.Lock()
	restaurantIDs := make([]uuid.UUID, 0, len(s.paused))
	for id := range s.paused {
		restaurantIDs = append(restaurantIDs, id)
	}
	s.paused = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	for _, restaurantID := range restaurantIDs {
		if err := s.StartAll(ctx, restaurantID); err != nil {
			return err
		}
	}
	return nil
}

// InstallCropJSON persists a camera's new crop-JSON and json-table-id
// -> Table mapping together, then restarts its worker so the next
// tick reads the new crop-JSON and the dispatcher's cached mapping is
// re-hydrated from the row just written — satisfying §5's "caches are
// invalidated on crop-JSON update" without a separate cache-clear step.
func (s *Supervisor) InstallCropJSON(ctx context.Context, cameraID uuid.UUID, cropJSON models.JSONMap, tableMapping map[string]uuid.UUID) error {
	if err := s.store.InstallCropJSON(cameraID, cropJSON, tableMapping); err != nil {
		return err
	}
	cam, err := s.store.GetCamera(cameraID)
	if err != nil {
		return err
	}
	s.Register(ctx, cam)
	return nil
}

// Shutdown cancels every worker and waits for them to exit. In-flight
// classifier calls already dispatched as their own goroutines are not
// joined here (§4.6: "In-flight classifier calls are allowed to
// complete or time out; no forced termination").
func (s *Supervisor) Shutdown() {
	s.Pause()
	s.wg.Wait()
}
