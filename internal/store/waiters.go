package store

import (
	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// ListCandidateWaiters returns waiters on non-ended shifts for a
// restaurant, optionally restricted by section when mode == "section"
// (§4.1, §4.7 step 2). Hosts, bussers, and runners are excluded: only
// server and bartender roles seat/serve parties.
func (s *Store) ListCandidateWaiters(restaurantID uuid.UUID, sectionID *uuid.UUID) ([]models.ShiftSnapshot, error) {
	var shifts []models.Shift
	q := s.db.Where("restaurant_id = ? AND status <> ?", restaurantID, models.ShiftEnded)
	if sectionID != nil {
		q = q.Where("section_id = ?", *sectionID)
	}
	if err := q.Find(&shifts).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list candidate waiters", err)
	}

	var waiterIDs []uuid.UUID
	for _, sh := range shifts {
		waiterIDs = append(waiterIDs, sh.WaiterID)
	}
	var waiters []models.Waiter
	if len(waiterIDs) > 0 {
		if err := s.db.Where("id IN ? AND role IN ?", waiterIDs,
			[]models.WaiterRole{models.RoleServer, models.RoleBartender}).Find(&waiters).Error; err != nil {
			return nil, apperr.Wrap(component, apperr.KindPermanent, "load eligible waiters", err)
		}
	}
	eligible := make(map[uuid.UUID]bool, len(waiters))
	for _, w := range waiters {
		eligible[w.ID] = true
	}

	snapshots := make([]models.ShiftSnapshot, 0, len(shifts))
	for _, sh := range shifts {
		if !eligible[sh.WaiterID] {
			continue
		}
		var openCount int64
		if err := s.db.Model(&models.Table{}).
			Where("current_visit_id IN (SELECT id FROM visits WHERE waiter_id = ? AND cleared_at IS NULL)", sh.WaiterID).
			Count(&openCount).Error; err != nil {
			return nil, apperr.Wrap(component, apperr.KindPermanent, "count current tables", err)
		}
		snapshots = append(snapshots, models.ShiftSnapshot{Shift: sh, CurrentTables: int(openCount)})
	}
	return snapshots, nil
}

// GetWaiter fetches a single waiter by id.
func (s *Store) GetWaiter(id uuid.UUID) (models.Waiter, error) {
	var w models.Waiter
	if err := s.db.Where("id = ?", id).First(&w).Error; err != nil {
		return models.Waiter{}, notFoundOr(err, "waiter not found")
	}
	return w, nil
}

// StartShift opens a new shift for a waiter, enforcing the §3
// invariant "at most one non-ended shift per waiter".
func (s *Store) StartShift(shift *models.Shift) error {
	var count int64
	if err := s.db.Model(&models.Shift{}).
		Where("waiter_id = ? AND status <> ?", shift.WaiterID, models.ShiftEnded).
		Count(&count).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "check existing shift", err)
	}
	if count > 0 {
		return apperr.New(component, apperr.KindConflict, "waiter already has an active shift")
	}
	if shift.ID == uuid.Nil {
		shift.ID = uuid.New()
	}
	if err := s.db.Create(shift).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "create shift", err)
	}
	return nil
}
