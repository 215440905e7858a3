package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// CreateVisitAndSeat creates a Visit and atomically transitions the
// table to occupied, satisfying the §3 invariant in one step (§4.1:
// "create_visit, attach_visit_to_table ... mutate Visit and Table
// together"). The table must currently be clean or reserved; any other
// state is a Conflict (the router's caller lost a race, or is seating
// an unprepared table).
func (s *Store) CreateVisitAndSeat(visit *models.Visit) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Where("id = ?", visit.TableID).First(&table).Error; err != nil {
			return notFoundOr(err, "table not found")
		}
		if table.State != models.TableClean && table.State != models.TableReserved {
			return apperr.New(component, apperr.KindConflict, "table is not available to seat")
		}
		previousState := table.State

		now := time.Now()
		if visit.ID == uuid.Nil {
			visit.ID = uuid.New()
		}
		if visit.SeatedAt.IsZero() {
			visit.SeatedAt = now
		}
		visit.CreatedAt, visit.UpdatedAt = now, now
		if err := tx.Create(visit).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "create visit", err)
		}

		table.State = models.TableOccupied
		table.StateConfidence = 1
		table.StateUpdatedAt = now
		table.CurrentVisitID = &visit.ID
		if err := tx.Save(&table).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "seat table", err)
		}

		logRow := models.TableStateLog{
			ID:         uuid.New(),
			TableID:    table.ID,
			Previous:   previousState,
			Next:       models.TableOccupied,
			Confidence: 1,
			Source:     models.SourceHost,
			Provenance: "visit.seat",
			CreatedAt:  now,
		}
		if err := tx.Create(&logRow).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "append table state log", err)
		}

		if visit.WaitlistEntryID != nil {
			if err := tx.Model(&models.WaitlistEntry{}).
				Where("id = ?", *visit.WaitlistEntryID).
				Updates(map[string]any{"status": models.WaitlistSeated, "visit_id": visit.ID, "updated_at": now}).Error; err != nil {
				return apperr.Wrap(component, apperr.KindPermanent, "mark waitlist entry seated", err)
			}
		}
		return nil
	})
	if err == nil {
		s.live.Broadcast("visit_seated", visit)
	}
	return err
}

// CloseVisit clears a table: marks the Visit cleared, records the
// actual covers served, recomputes duration/tip%, and transitions the
// table occupied -> dirty. actualCovers feeds C8's forecaster and
// C12's rollups (§4.8, §4.12); falling back to PartySize is the
// caller's job if the true count was never tracked.
func (s *Store) CloseVisit(visitID uuid.UUID, actualCovers int, subtotal, tax, total, tip float64) (models.Visit, error) {
	var visit models.Visit
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", visitID).First(&visit).Error; err != nil {
			return notFoundOr(err, "visit not found")
		}
		if !visit.IsOpen() {
			return apperr.New(component, apperr.KindConflict, "visit already cleared")
		}

		now := time.Now()
		visit.ActualCovers = actualCovers
		visit.Subtotal, visit.Tax, visit.Total, visit.Tip = subtotal, tax, total, tip
		visit.ClearedAt = &now
		visit.Recompute()
		visit.UpdatedAt = now
		if err := tx.Save(&visit).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "close visit", err)
		}

		var table models.Table
		if err := tx.Where("id = ?", visit.TableID).First(&table).Error; err != nil {
			return notFoundOr(err, "table not found")
		}
		if table.State != models.TableOccupied || table.CurrentVisitID == nil || *table.CurrentVisitID != visit.ID {
			return apperr.New(component, apperr.KindInvariant, "table is not occupied by this visit")
		}

		table.State = models.TableDirty
		table.StateConfidence = 1
		table.StateUpdatedAt = now
		table.CurrentVisitID = nil
		if err := tx.Save(&table).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "release table", err)
		}

		logRow := models.TableStateLog{
			ID:         uuid.New(),
			TableID:    table.ID,
			Previous:   models.TableOccupied,
			Next:       models.TableDirty,
			Confidence: 1,
			Source:     models.SourceSystem,
			Provenance: "visit.clear",
			CreatedAt:  now,
		}
		return tx.Create(&logRow).Error
	})
	if err != nil {
		return models.Visit{}, err
	}
	return visit, nil
}

// GetVisit fetches a visit by id.
func (s *Store) GetVisit(id uuid.UUID) (models.Visit, error) {
	var v models.Visit
	if err := s.db.Where("id = ?", id).First(&v).Error; err != nil {
		return models.Visit{}, notFoundOr(err, "visit not found")
	}
	return v, nil
}

// VisitsBetween returns visits for a restaurant seated within
// [from, to), used by C8 (forecasting) and C12 (rollups).
func (s *Store) VisitsBetween(restaurantID uuid.UUID, from, to time.Time) ([]models.Visit, error) {
	var visits []models.Visit
	err := s.db.Where("restaurant_id = ? AND seated_at >= ? AND seated_at < ?", restaurantID, from, to).
		Order("seated_at ASC").Find(&visits).Error
	if err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list visits", err)
	}
	return visits, nil
}
