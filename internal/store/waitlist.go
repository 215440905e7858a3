package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// CreateWaitlistEntry queues a party.
func (s *Store) CreateWaitlistEntry(entry *models.WaitlistEntry) error {
	now := time.Now()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt, entry.UpdatedAt = now, now
	if entry.Status == "" {
		entry.Status = models.WaitlistWaiting
	}
	if err := s.db.Create(entry).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "create waitlist entry", err)
	}
	return nil
}

// GetWaitlistEntry fetches a queued party by id, used by the Router
// when a recommend request references a waitlist entry rather than an
// inline party size/preference pair (§4.7).
func (s *Store) GetWaitlistEntry(id uuid.UUID) (models.WaitlistEntry, error) {
	var e models.WaitlistEntry
	if err := s.db.Where("id = ?", id).First(&e).Error; err != nil {
		return models.WaitlistEntry{}, notFoundOr(err, "waitlist entry not found")
	}
	return e, nil
}

// MarkWalkedAway closes out a waitlist entry that was never seated.
func (s *Store) MarkWalkedAway(id uuid.UUID) error {
	if err := s.db.Model(&models.WaitlistEntry{}).Where("id = ?", id).Updates(map[string]any{
		"status": models.WaitlistWalkedAway, "updated_at": time.Now(),
	}).Error; err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "mark waitlist entry walked away", err)
	}
	return nil
}

// ListWaiting returns every still-waiting entry for a restaurant,
// oldest first.
func (s *Store) ListWaiting(restaurantID uuid.UUID) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := s.db.Where("restaurant_id = ? AND status = ?", restaurantID, models.WaitlistWaiting).
		Order("created_at ASC").Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list waiting entries", err)
	}
	return entries, nil
}
