package store

import (
	"sync"

	"github.com/google/uuid"
)

// RestaurantLocks provides the per-restaurant mutex §5 requires around
// recommend+seat ("two concurrent seatings do not pick the same
// table"). It is process-local, an in-memory mutex-guarded map rather
// than a distributed lock — a single State Store process owns all writes.
type RestaurantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewRestaurantLocks constructs an empty lock table.
func NewRestaurantLocks() *RestaurantLocks {
	return &RestaurantLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires (creating if necessary) the mutex for restaurantID and
// returns an unlock function.
func (r *RestaurantLocks) Lock(restaurantID uuid.UUID) func() {
	r.mu.Lock()
	l, ok := r.locks[restaurantID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[restaurantID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ScheduleLocks provides the per-(restaurant, week) exclusive lock
// §5 requires for the duration of a Scheduling Engine run.
type ScheduleLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewScheduleLocks() *ScheduleLocks {
	return &ScheduleLocks{locks: make(map[string]*sync.Mutex)}
}

func (r *ScheduleLocks) Lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
