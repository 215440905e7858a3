// Package store implements the State Store (C1): the single
// transactional gateway to the data model in spec.md §3. Every
// mutation here either commits or returns an error and leaves state
// unchanged (§4.1). Domain failures are *apperr.Error values of kind
// Conflict, NotFound, or Invariant; most database failures are wrapped
// as Permanent, and a few single-statement camera updates return the
// database error as is.
package store

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/models"
)

const component = "store"

// Broadcaster is the optional demo-replay hook §6 allows: a sink for
// domain events the store itself produces (table state transitions,
// seatings). Store never depends on the transport that implements it —
// internal/live.Hub satisfies this interface without store importing
// gorilla/websocket.
type Broadcaster interface {
	Broadcast(event string, data any)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, any) {}

// Store wraps a *gorm.DB and provides the narrow, typed operation set
// the rest of the core calls: a plain struct holding *gorm.DB with one
// receiver method per operation, rather than a generic repository.
type Store struct {
	db   *gorm.DB
	log  *logrus.Logger
	live Broadcaster
}

// New constructs a Store. log may be nil, in which case a discarding
// logger is used (tests commonly do this).
func New(db *gorm.DB, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
		log.SetOutput(nopWriter{})
	}
	return &Store{db: db, log: log, live: noopBroadcaster{}}
}

// SetBroadcaster wires a live event sink. Optional — a Store with none
// behaves exactly as before (Broadcast calls are no-ops).
func (s *Store) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	s.live = b
}

// DB exposes the underlying handle for migrations and fixtures. Core
// components other than store itself should not use this for domain
// operations.
func (s *Store) DB() *gorm.DB { return s.db }

// AutoMigrate creates/updates every table the core owns.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Restaurant{},
		&models.Section{},
		&models.Table{},
		&models.TableStateLog{},
		&models.Waiter{},
		&models.Shift{},
		&models.Visit{},
		&models.WaitlistEntry{},
		&models.Camera{},
		&models.CropDispatchLog{},
		&models.StaffAvailability{},
		&models.StaffPreference{},
		&models.StaffingRequirement{},
		&models.Schedule{},
		&models.ScheduleItem{},
		&models.ScheduleReasoning{},
		&models.ScheduleRun{},
		&models.WaiterMetrics{},
		&models.RestaurantMetrics{},
		&models.MenuItemMetrics{},
	)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
