package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/tablefsm"
)

// TablePreferences is the optional preference set used to score and
// order candidate tables in FindAvailableTables (§4.1, §4.7 step 1).
type TablePreferences struct {
	Type     models.TablePreference
	Location models.LocationPreference
}

// TableMatch pairs a candidate Table with its §4.7 table_score and the
// excess seats over the requested party size.
type TableMatch struct {
	Table       models.Table
	Score       int
	ExcessSeats int
}

// FindAvailableTables returns clean tables with capacity >= partySize,
// ordered by Score descending (preference bonus minus an excess-seat
// penalty), ties broken by fewer excess seats, per §4.1.
func (s *Store) FindAvailableTables(restaurantID uuid.UUID, partySize int, prefs TablePreferences) ([]TableMatch, error) {
	var tables []models.Table
	err := s.db.Where("restaurant_id = ? AND state = ? AND capacity >= ?",
		restaurantID, models.TableClean, partySize).
		Order("number ASC").
		Find(&tables).Error
	if err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "find available tables", err)
	}

	matches := make([]TableMatch, 0, len(tables))
	for _, t := range tables {
		score := 50
		if prefs.Type != "" && prefs.Type != models.PrefNone && string(prefs.Type) == string(t.Type) {
			score += 10
		}
		if prefs.Location != "" && prefs.Location != models.LocPrefNone && string(prefs.Location) == string(t.Location) {
			score += 10
		}
		excess := t.Capacity - partySize
		score -= 2 * excess
		matches = append(matches, TableMatch{Table: t, Score: score, ExcessSeats: excess})
	}

	sortTableMatches(matches)
	return matches, nil
}

func sortTableMatches(matches []TableMatch) {
	// Stable insertion sort keeps this deterministic and dependency-free;
	// candidate lists are small (per-restaurant table counts).
	for i := 1; i < len(matches); i++ {
		j := i
		for j > 0 && lessTableMatch(matches[j], matches[j-1]) {
			matches[j], matches[j-1] = matches[j-1], matches[j]
			j--
		}
	}
}

func lessTableMatch(a, b TableMatch) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ExcessSeats < b.ExcessSeats
}

// errIgnored is a sentinel returned internally when §4.2's idempotence
// rule says a same-state push carries no new information. It is not
// surfaced to the caller as a failure: UpdateTableState translates it
// into (zero value, applied=false, err=nil).
var errIgnored = apperr.New(component, apperr.KindInvariant, "idempotent push ignored")

// UpdateTableState runs the proposed transition through the Table
// State Machine (C2) and, if accepted, atomically updates the Table
// row, appends exactly one TableStateLog entry, and adjusts
// CurrentVisitID to satisfy the §3 invariant. applied is false (with a
// nil error) when §4.2's idempotence rule silently ignores the push.
func (s *Store) UpdateTableState(tableID uuid.UUID, next models.TableState, confidence float64, source models.StateSource, provenance string) (logRow models.TableStateLog, applied bool, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Where("id = ?", tableID).First(&table).Error; err != nil {
			return notFoundOr(err, "table not found")
		}

		req := tablefsm.Request{
			Previous:   table.State,
			Next:       next,
			Confidence: confidence,
			Source:     source,
			Provenance: provenance,
		}

		if table.State == next && confidence <= table.StateConfidence {
			return errIgnored
		}

		outcome, err := tablefsm.Apply(req)
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			return apperr.New(component, apperr.KindInvariant, "transition rejected")
		}

		now := time.Now()
		table.State = next
		table.StateConfidence = confidence
		table.StateUpdatedAt = now

		if tablefsm.CurrentVisitRequired(next) {
			if table.CurrentVisitID == nil {
				return apperr.New(component, apperr.KindInvariant, "occupied state requires an open visit")
			}
		} else {
			table.CurrentVisitID = nil
		}

		if err := tx.Save(&table).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "save table", err)
		}

		logRow = models.TableStateLog{
			ID:         uuid.New(),
			TableID:    table.ID,
			Previous:   req.Previous,
			Next:       next,
			Confidence: confidence,
			Source:     source,
			Provenance: provenance,
			CreatedAt:  now,
		}
		if err := tx.Create(&logRow).Error; err != nil {
			return apperr.Wrap(component, apperr.KindPermanent, "append table state log", err)
		}
		applied = true
		return nil
	})
	if err == errIgnored {
		return models.TableStateLog{}, false, nil
	}
	if err != nil {
		return models.TableStateLog{}, false, err
	}
	s.live.Broadcast("table_state_changed", logRow)
	return logRow, true, nil
}

func notFoundOr(err error, detail string) error {
	if err == gorm.ErrRecordNotFound {
		return apperr.Wrap(component, apperr.KindNotFound, detail, err)
	}
	return apperr.Wrap(component, apperr.KindPermanent, detail, err)
}
