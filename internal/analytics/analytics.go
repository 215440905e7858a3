// Package analytics implements the Analytics Rollups (C12): idempotent
// batch derivations over Visits, keyed by (entity, period_type,
// period_start) (spec.md §4.12).
package analytics

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

const component = "analytics"

// Roller computes and upserts rollups directly against a *gorm.DB —
// a plain struct wrapping the handle, one method per report — rather
// than routing through the State Store's narrow operation set:
// rollups are read-mostly batch jobs, not part of C1's transactional
// invariant surface.
type Roller struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Roller {
	return &Roller{db: db}
}

// RollWaiterMetrics aggregates closed visits per waiter for one
// (period_type, period_start) bucket and upserts the result —
// re-running on an unchanged visit set yields the same row (§4.12
// idempotence; §8 testable property).
func (r *Roller) RollWaiterMetrics(restaurantID uuid.UUID, periodType models.PeriodType, periodStart, periodEnd time.Time) error {
	visits, err := r.closedVisits(restaurantID, periodStart, periodEnd)
	if err != nil {
		return err
	}

	byWaiter := make(map[uuid.UUID][]models.Visit)
	for _, v := range visits {
		byWaiter[v.WaiterID] = append(byWaiter[v.WaiterID], v)
	}

	now := time.Now()
	for waiterID, vs := range byWaiter {
		m := models.WaiterMetrics{
			ID:          uuid.New(),
			WaiterID:    waiterID,
			PeriodType:  periodType,
			PeriodStart: periodStart,
			Visits:      len(vs),
			UpdatedAt:   now,
		}
		var tipPctSum, checkSum, turnSum float64
		for _, v := range vs {
			m.Covers += v.ActualCovers
			m.Tips += v.Tip
			tipPctSum += v.TipPct
			checkSum += v.Total
			turnSum += float64(v.DurationSeconds)
		}
		n := float64(max1(len(vs)))
		m.AvgTipPct = tipPctSum / n
		m.AvgCheck = checkSum / n
		m.AvgTurnSecs = turnSum / n

		if err := upsert(r.db, &m, []string{"waiter_id", "period_type", "period_start"}); err != nil {
			return err
		}
	}
	return nil
}

// RollRestaurantMetrics aggregates one period's visits into a single
// restaurant-level row.
func (r *Roller) RollRestaurantMetrics(restaurantID uuid.UUID, periodType models.PeriodType, periodStart, periodEnd time.Time) error {
	visits, err := r.closedVisits(restaurantID, periodStart, periodEnd)
	if err != nil {
		return err
	}

	m := models.RestaurantMetrics{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		PeriodType:   periodType,
		PeriodStart:  periodStart,
		Parties:      len(visits),
		UpdatedAt:    time.Now(),
	}

	waiters := make(map[uuid.UUID]bool)
	concurrentByMinute := make(map[int64]int)
	var waitSecondsSum float64
	var waitSamples int

	for _, v := range visits {
		m.Covers += v.ActualCovers
		m.Revenue += v.Total
		waiters[v.WaiterID] = true

		if v.ClearedAt != nil {
			for t := v.SeatedAt.Unix() / 60; t <= v.ClearedAt.Unix()/60; t++ {
				concurrentByMinute[t]++
			}
		}
		if v.FirstServedAt != nil {
			waitSecondsSum += v.FirstServedAt.Sub(v.SeatedAt).Seconds()
			waitSamples++
		}
	}
	for _, c := range concurrentByMinute {
		if c > m.PeakOccupancy {
			m.PeakOccupancy = c
		}
	}
	if waitSamples > 0 {
		m.AvgWaitSeconds = waitSecondsSum / float64(waitSamples)
	}
	if len(waiters) > 0 {
		m.CoversPerWaiter = float64(m.Covers) / float64(len(waiters))
	}

	return upsert(r.db, &m, []string{"restaurant_id", "period_type", "period_start"})
}

// RollMenuItemMetrics aggregates order lines supplied by the caller
// (the core has no menu-item entity of its own, per §1's non-goals —
// this rollup is keyed on whatever opaque MenuItemID the caller's
// order system provides).
type OrderLine struct {
	MenuItemID uuid.UUID
	Quantity   int
	Revenue    float64
	HourOfDay  int
	OccurredAt time.Time
}

func (r *Roller) RollMenuItemMetrics(restaurantID uuid.UUID, periodType models.PeriodType, periodStart time.Time, lines []OrderLine) error {
	byItem := make(map[uuid.UUID][]OrderLine)
	for _, l := range lines {
		byItem[l.MenuItemID] = append(byItem[l.MenuItemID], l)
	}

	for itemID, ls := range byItem {
		hourly := make(models.JSONMap)
		m := models.MenuItemMetrics{
			ID:           uuid.New(),
			RestaurantID: restaurantID,
			MenuItemID:   itemID,
			PeriodType:   periodType,
			PeriodStart:  periodStart,
			UpdatedAt:    time.Now(),
		}
		for _, l := range ls {
			m.Orders += l.Quantity
			m.Revenue += l.Revenue
			key := hourKey(l.HourOfDay)
			count, _ := hourly[key].(int)
			hourly[key] = count + l.Quantity
		}
		m.HourlyOrders = hourly

		if err := upsert(r.db, &m, []string{"restaurant_id", "menu_item_id", "period_type", "period_start"}); err != nil {
			return err
		}
	}
	return nil
}

func (r *Roller) closedVisits(restaurantID uuid.UUID, from, to time.Time) ([]models.Visit, error) {
	var visits []models.Visit
	err := r.db.Where("restaurant_id = ? AND seated_at >= ? AND seated_at < ? AND cleared_at IS NOT NULL",
		restaurantID, from, to).Find(&visits).Error
	if err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list closed visits", err)
	}
	return visits, nil
}

// upsert replaces the row matching keyCols with the given model,
// implementing §4.12's "same-key upsert" idempotence via GORM's ON
// CONFLICT clause rather than a hand-rolled select-then-update.
func upsert(db *gorm.DB, model any, keyCols []string) error {
	cols := make([]clause.Column, len(keyCols))
	for i, c := range keyCols {
		cols[i] = clause.Column{Name: c}
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   cols,
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		return apperr.Wrap(component, apperr.KindPermanent, "upsert rollup", err)
	}
	return nil
}

func hourKey(hour int) string {
	return time.Date(2000, 1, 1, hour, 0, 0, 0, time.UTC).Format("15")
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
