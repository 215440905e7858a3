package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// CreateDraftSchedule creates a new draft schedule at version 1 for a
// restaurant/week, or returns the existing draft unchanged if one
// already exists — the scheduling engine re-running against the same
// week appends to that draft rather than erroring.
func (s *Store) CreateDraftSchedule(restaurantID uuid.UUID, weekStart time.Time) (models.Schedule, error) {
	var existing models.Schedule
	err := s.db.Where("restaurant_id = ? AND week_start = ? AND status = ?",
		restaurantID, weekStart, models.ScheduleDraft).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return models.Schedule{}, apperr.Wrap(component, apperr.KindPermanent, "lookup draft schedule", err)
	}

	now := time.Now()
	sched := models.Schedule{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		WeekStart:    weekStart,
		Version:      1,
		Status:       models.ScheduleDraft,
		GeneratedBy:  models.GeneratedEngine,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.Create(&sched).Error; err != nil {
		return models.Schedule{}, apperr.Wrap(component, apperr.KindPermanent, "create draft schedule", err)
	}
	return sched, nil
}

// PublishSchedule archives any prior published schedule for the same
// (restaurant, week) and republishes scheduleID, incrementing version
// when a prior published version exists (§4.1, unique constraint
// (restaurant, week_start, version)).
func (s *Store) PublishSchedule(scheduleID uuid.UUID) (models.Schedule, error) {
	var published models.Schedule
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sched models.Schedule
		if err := tx.Where("id = ?", scheduleID).First(&sched).Error; err != nil {
			return notFoundOr(err, "schedule not found")
		}

		var prior models.Schedule
		priorErr := tx.Where("restaurant_id = ? AND week_start = ? AND status = ? AND id <> ?",
			sched.RestaurantID, sched.WeekStart, models.SchedulePublished, sched.ID).First(&prior).Error
		now := time.Now()
		if priorErr == nil {
			prior.Status = models.ScheduleArchived
			prior.UpdatedAt = now
			if err := tx.Save(&prior).Error; err != nil {
				return apperr.Wrap(component, apperr.KindPermanent, "archive prior schedule", err)
			}
			sched.Version = prior.Version + 1
		} else if priorErr != gorm.ErrRecordNotFound {
			return apperr.Wrap(component, apperr.KindPermanent, "lookup prior published schedule", priorErr)
		}

		sched.Status = models.SchedulePublished
		sched.UpdatedAt = now
		if err := tx.Save(&sched).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "publish schedule", err)
		}
		published = sched
		return nil
	})
	if err != nil {
		return models.Schedule{}, err
	}
	return published, nil
}

// CreateScheduleItem persists one assignment plus its reasoning atomically.
func (s *Store) CreateScheduleItem(item *models.ScheduleItem, reasoning *models.ScheduleReasoning) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.CreatedAt, item.UpdatedAt = now, now
		if err := tx.Create(item).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "create schedule item", err)
		}
		reasoning.ScheduleItemID = item.ID
		reasoning.CreatedAt = now
		if err := tx.Create(reasoning).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "create schedule reasoning", err)
		}
		return nil
	})
}

// ScheduleItemsFor returns every item assigned so far in a schedule,
// used by the constraint validator to check overlap (§4.10 hard
// constraint 5) and by the fairness evaluator's running state (§4.11
// step 3).
func (s *Store) ScheduleItemsFor(scheduleID uuid.UUID) ([]models.ScheduleItem, error) {
	var items []models.ScheduleItem
	if err := s.db.Where("schedule_id = ?", scheduleID).Find(&items).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list schedule items", err)
	}
	return items, nil
}

// CreateScheduleRun / FinishScheduleRun bookend an engine invocation.
func (s *Store) CreateScheduleRun(run *models.ScheduleRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = models.RunRunning
	}
	if err := s.db.Create(run).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "create schedule run", err)
	}
	return nil
}

func (s *Store) FinishScheduleRun(run *models.ScheduleRun) error {
	now := time.Now()
	run.FinishedAt = &now
	if err := s.db.Save(run).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "finish schedule run", err)
	}
	return nil
}

// ListStaffingRequirements, ListAvailability, GetPreference back C8/C10/C11.
func (s *Store) ListStaffingRequirements(restaurantID uuid.UUID) ([]models.StaffingRequirement, error) {
	var reqs []models.StaffingRequirement
	if err := s.db.Where("restaurant_id = ?", restaurantID).Find(&reqs).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list staffing requirements", err)
	}
	return reqs, nil
}

func (s *Store) ListAvailability(waiterID uuid.UUID) ([]models.StaffAvailability, error) {
	var avail []models.StaffAvailability
	if err := s.db.Where("waiter_id = ?", waiterID).Find(&avail).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list availability", err)
	}
	return avail, nil
}

func (s *Store) GetPreference(waiterID uuid.UUID) (models.StaffPreference, error) {
	var pref models.StaffPreference
	err := s.db.Where("waiter_id = ?", waiterID).First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		return models.StaffPreference{WaiterID: waiterID, MaxHoursPerWeek: 40, MaxShiftsPerWeek: 6}, nil
	}
	if err != nil {
		return models.StaffPreference{}, apperr.Wrap(component, apperr.KindPermanent, "get preference", err)
	}
	return pref, nil
}

// ListRestaurantWaiters returns every waiter belonging to a restaurant,
// used when the scheduling engine considers candidates that may not
// currently be on a live shift (unlike ListCandidateWaiters, which is
// the routing-time view of on-duty staff).
func (s *Store) ListRestaurantWaiters(restaurantID uuid.UUID) ([]models.Waiter, error) {
	var waiters []models.Waiter
	if err := s.db.Where("restaurant_id = ?", restaurantID).Find(&waiters).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list restaurant waiters", err)
	}
	return waiters, nil
}
