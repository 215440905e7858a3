// Package scheduling implements the Scheduling Engine (C11): the
// score-and-rank weekly assigner wiring the Forecaster (C8), Fairness
// Evaluator (C9), and Constraint Validator (C10) together (spec.md
// §4.11).
package scheduling

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/constraints"
	"github.com/brigadeops/core/internal/fairness"
	"github.com/brigadeops/core/internal/forecast"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/store"
)

const component = "scheduling"

const (
	weightConstraint = 0.5
	weightFairness   = 0.3
	weightPreference = 0.2

	lookbackWeeks = 8

	bonusRole      = 20.0
	bonusShiftType = 15.0
	bonusSection   = 10.0
	bonusPrime     = 10.0
)

// engineStore is the narrow store slice the engine needs.
type engineStore interface {
	GetRestaurant(id uuid.UUID) (models.Restaurant, error)
	ListStaffingRequirements(restaurantID uuid.UUID) ([]models.StaffingRequirement, error)
	ListAvailability(waiterID uuid.UUID) ([]models.StaffAvailability, error)
	GetPreference(waiterID uuid.UUID) (models.StaffPreference, error)
	ListRestaurantWaiters(restaurantID uuid.UUID) ([]models.Waiter, error)
	VisitsBetween(restaurantID uuid.UUID, from, to time.Time) ([]models.Visit, error)
	CreateDraftSchedule(restaurantID uuid.UUID, weekStart time.Time) (models.Schedule, error)
	CreateScheduleItem(item *models.ScheduleItem, reasoning *models.ScheduleReasoning) error
	ScheduleItemsFor(scheduleID uuid.UUID) ([]models.ScheduleItem, error)
	CreateScheduleRun(run *models.ScheduleRun) error
	FinishScheduleRun(run *models.ScheduleRun) error
}

// Engine runs weekly scheduling.
type Engine struct {
	store engineStore
	locks *store.ScheduleLocks
	log   *logrus.Logger
}

func New(s engineStore, locks *store.ScheduleLocks, log *logrus.Logger) *Engine {
	return &Engine{store: s, locks: locks, log: log}
}

// Run executes §4.11 end to end, under the per-(restaurant, week)
// exclusive lock §5 requires for the duration of a run.
func (e *Engine) Run(restaurantID uuid.UUID, weekStart time.Time) (models.ScheduleRun, error) {
	key := restaurantID.String() + "|" + weekStart.Format("2006-01-02")
	unlock := e.locks.Lock(key)
	defer unlock()

	run := models.ScheduleRun{
		RestaurantID: restaurantID,
		WeekStart:    weekStart,
		SnapshotID:   uuid.New(),
		Status:       models.RunRunning,
	}
	if err := e.store.CreateScheduleRun(&run); err != nil {
		return models.ScheduleRun{}, err
	}

	result, runErr := e.runLocked(restaurantID, weekStart, &run)
	if runErr != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = runErr.Error()
		_ = e.store.FinishScheduleRun(&run)
		return run, runErr
	}
	run.ScheduleID = &result.scheduleID
	run.Status = models.RunCompleted
	run.ItemsCreated = result.itemsCreated
	run.TotalHours = result.totalHours
	run.CoveragePct = result.coveragePct
	run.FairnessGini = result.fairnessGini
	run.PreferenceAvg = result.preferenceAvg
	run.ForecastTrend = result.forecastTrend
	run.UnderstaffedSlots = result.understaffedSlots
	if err := e.store.FinishScheduleRun(&run); err != nil {
		return run, err
	}
	return run, nil
}

type runSummary struct {
	scheduleID        uuid.UUID
	itemsCreated      int
	totalHours        float64
	coveragePct       float64
	fairnessGini      float64
	preferenceAvg     float64
	forecastTrend     string
	understaffedSlots int
}

func (e *Engine) runLocked(restaurantID uuid.UUID, weekStart time.Time, run *models.ScheduleRun) (runSummary, error) {
	// Step 1: snapshot inputs.
	waiters, err := e.store.ListRestaurantWaiters(restaurantID)
	if err != nil {
		return runSummary{}, err
	}
	requirements, err := e.store.ListStaffingRequirements(restaurantID)
	if err != nil {
		return runSummary{}, err
	}
	visits, err := e.store.VisitsBetween(restaurantID, weekStart.AddDate(0, 0, -7*lookbackWeeks), weekStart)
	if err != nil {
		return runSummary{}, err
	}

	sched, err := e.store.CreateDraftSchedule(restaurantID, weekStart)
	if err != nil {
		return runSummary{}, err
	}

	// Step 2: forecast trend, carried on the run summary per step 7.
	// WeeklyMAPESeries backtests a deterministic, fixed-order weekly
	// series rather than classifying over forecast baselines, which
	// would depend on Forecast's internal bucket ordering.
	forecastTrend := string(forecast.ClassifyTrend(forecast.WeeklyMAPESeries(weekStart, visits)))

	// Running fairness state across the whole run (step 3/4).
	hoursByWaiter := make(map[uuid.UUID]float64)
	primeByWaiter := make(map[uuid.UUID]float64)
	for _, w := range waiters {
		hoursByWaiter[w.ID] = 0
		primeByWaiter[w.ID] = 0
	}

	itemsCreated := 0
	understaffed := 0
	var totalHours, preferenceSum float64
	var preferenceCount int

	sortedRequirements := append([]models.StaffingRequirement(nil), requirements...)
	sort.Slice(sortedRequirements, func(i, j int) bool {
		if sortedRequirements[i].DayOfWeek != sortedRequirements[j].DayOfWeek {
			return sortedRequirements[i].DayOfWeek < sortedRequirements[j].DayOfWeek
		}
		return sortedRequirements[i].StartMinute < sortedRequirements[j].StartMinute
	})

	for _, req := range sortedRequirements {
		shiftDate := weekStart.AddDate(0, 0, req.DayOfWeek)
		slotsNeeded := req.Min
		for slot := 0; slot < slotsNeeded; slot++ {
			best, bestScore, bestPref, bestFairness, ok := e.bestCandidate(req, shiftDate, waiters, hoursByWaiter, primeByWaiter, sched.ID)
			if !ok {
				understaffed++
				continue
			}

			hours := float64(req.EndMinute-req.StartMinute) / 60
			item := &models.ScheduleItem{
				ScheduleID:           sched.ID,
				WaiterID:             best.ID,
				Role:                 req.Role,
				SectionID:            req.SectionID,
				ShiftDate:            shiftDate,
				StartMinute:          req.StartMinute,
				EndMinute:            req.EndMinute,
				Source:               models.GeneratedEngine,
				PreferenceMatchScore: bestPref,
				FairnessImpactScore:  bestFairness,
			}
			reasoning := &models.ScheduleReasoning{
				Lines: reasoningLines(req, bestScore, bestPref, bestFairness, forecastTrend),
			}
			if err := e.store.CreateScheduleItem(item, reasoning); err != nil {
				return runSummary{}, err
			}

			hoursByWaiter[best.ID] += hours
			if req.IsPrimeShift {
				primeByWaiter[best.ID] += hours
			}
			totalHours += hours
			preferenceSum += bestPref
			preferenceCount++
			itemsCreated++
		}
	}

	waiterHours := make([]fairness.WaiterHours, 0, len(waiters))
	for _, w := range waiters {
		waiterHours = append(waiterHours, fairness.WaiterHours{
			WaiterID: w.ID, Hours: hoursByWaiter[w.ID], PrimeHours: primeByWaiter[w.ID],
		})
	}
	fairnessResult := fairness.Evaluate(waiterHours)

	totalSlots := 0
	for _, req := range sortedRequirements {
		totalSlots += req.Min
	}
	coveragePct := 100.0
	if totalSlots > 0 {
		coveragePct = 100 * float64(itemsCreated) / float64(totalSlots)
	}
	preferenceAvg := 0.0
	if preferenceCount > 0 {
		preferenceAvg = preferenceSum / float64(preferenceCount)
	}

	return runSummary{
		scheduleID:        sched.ID,
		itemsCreated:       itemsCreated,
		totalHours:         totalHours,
		coveragePct:        coveragePct,
		fairnessGini:       fairnessResult.HoursGini,
		preferenceAvg:      preferenceAvg,
		forecastTrend:      forecastTrend,
		understaffedSlots:  understaffed,
	}, nil
}

// bestCandidate implements §4.11 step 3: for one staffing slot, score
// every waiter whose hard constraints pass and return the winner.
// Tie-breaks per step: higher preference score, then lower current
// weekly hours, then lexicographic waiter id.
func (e *Engine) bestCandidate(
	req models.StaffingRequirement,
	shiftDate time.Time,
	waiters []models.Waiter,
	hoursByWaiter, primeByWaiter map[uuid.UUID]float64,
	scheduleID uuid.UUID,
) (models.Waiter, float64, float64, float64, bool) {
	existing, err := e.store.ScheduleItemsFor(scheduleID)
	if err != nil {
		return models.Waiter{}, 0, 0, 0, false
	}

	type scored struct {
		waiter     models.Waiter
		total      float64
		prefBonus  float64
		fairImpact float64
	}
	var candidates []scored

	for _, w := range waiters {
		availability, err := e.store.ListAvailability(w.ID)
		if err != nil {
			continue
		}
		pref, err := e.store.GetPreference(w.ID)
		if err != nil {
			continue
		}

		if rej := constraints.Evaluate(w, pref, availability, existing, shiftDate, req.StartMinute, req.EndMinute, req.Role); rej != nil {
			continue
		}

		prevDayShift, nextDayShift := clopeningCandidate(existing, w.ID, shiftDate, req)
		softScore := constraints.SoftScore(pref, shiftTypeOf(req.StartMinute), sectionKey(req.SectionID), prevDayShift, nextDayShift,
			hoursByWaiter[w.ID]+float64(req.EndMinute-req.StartMinute)/60)

		prefBonus := preferenceBonus(w, pref, req)
		fairImpact := fairnessImpact(w.ID, req, hoursByWaiter, primeByWaiter)

		total := weightConstraint*softScore + weightFairness*(fairImpact+50) + weightPreference*prefBonus
		candidates = append(candidates, scored{waiter: w, total: total, prefBonus: prefBonus, fairImpact: fairImpact})
	}

	if len(candidates) == 0 {
		return models.Waiter{}, 0, 0, 0, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.total != b.total {
			return a.total > b.total
		}
		if a.prefBonus != b.prefBonus {
			return a.prefBonus > b.prefBonus
		}
		if hoursByWaiter[a.waiter.ID] != hoursByWaiter[b.waiter.ID] {
			return hoursByWaiter[a.waiter.ID] < hoursByWaiter[b.waiter.ID]
		}
		return a.waiter.ID.String() < b.waiter.ID.String()
	})

	winner := candidates[0]
	return winner.waiter, winner.total, winner.prefBonus, winner.fairImpact, true
}

// clopeningCandidate pairs this req's own candidate slot with whichever
// adjacent day already has an assigned shift for this waiter, so
// constraints.SoftScore's isClopening check actually spans the closing
// shift and the opening shift rather than comparing two unrelated
// already-existing items (§4.10). If the waiter closed the day before,
// today's candidate is treated as the possible opening half; if the
// waiter already opens the day after, today's candidate is treated as
// the possible closing half. A waiter with assignments on both
// adjacent days favors the prior-day pairing.
func clopeningCandidate(existing []models.ScheduleItem, waiterID uuid.UUID, shiftDate time.Time, req models.StaffingRequirement) (prevDayShift, nextDayShift *models.ScheduleItem) {
	candidate := &models.ScheduleItem{
		WaiterID: waiterID, ShiftDate: shiftDate,
		StartMinute: req.StartMinute, EndMinute: req.EndMinute,
	}
	if prev := waiterShiftOn(existing, waiterID, shiftDate.AddDate(0, 0, -1)); prev != nil {
		return prev, candidate
	}
	if next := waiterShiftOn(existing, waiterID, shiftDate.AddDate(0, 0, 1)); next != nil {
		return candidate, next
	}
	return nil, nil
}

// waiterShiftOn returns the one ScheduleItem already in this run that
// assigns waiterID to date, or nil if none — the adjacent-day lookup
// constraints.SoftScore needs to detect clopening (§4.10).
func waiterShiftOn(existing []models.ScheduleItem, waiterID uuid.UUID, date time.Time) *models.ScheduleItem {
	for i := range existing {
		item := existing[i]
		if item.WaiterID != waiterID {
			continue
		}
		if sameDay(item.ShiftDate, date) {
			return &item
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// fairnessImpact is positive when assigning this waiter to this slot
// would reduce the running hours-gini relative to leaving it
// unassigned, per §4.11 step 3.
func fairnessImpact(waiterID uuid.UUID, req models.StaffingRequirement, hoursByWaiter, primeByWaiter map[uuid.UUID]float64) float64 {
	before := snapshotHours(hoursByWaiter)
	beforeGini := fairness.Gini(before)

	hours := float64(req.EndMinute-req.StartMinute) / 60
	after := make([]float64, 0, len(hoursByWaiter))
	for id, h := range hoursByWaiter {
		if id == waiterID {
			h += hours
		}
		after = append(after, h)
	}
	afterGini := fairness.Gini(after)

	return (beforeGini - afterGini) * 100
}

func snapshotHours(hoursByWaiter map[uuid.UUID]float64) []float64 {
	out := make([]float64, 0, len(hoursByWaiter))
	for _, h := range hoursByWaiter {
		out = append(out, h)
	}
	return out
}

// preferenceBonus sums §4.11 step 3's preference_bonus components,
// capped at 100.
func preferenceBonus(w models.Waiter, pref models.StaffPreference, req models.StaffingRequirement) float64 {
	var bonus float64
	if len(pref.PreferredRoles) == 0 && w.Role == req.Role {
		bonus += bonusRole
	} else if pref.PreferredRoles.Contains(string(req.Role)) {
		bonus += bonusRole
	}
	if pref.ShiftTypes.Contains(string(shiftTypeOf(req.StartMinute))) {
		bonus += bonusShiftType
	}
	if sk := sectionKey(req.SectionID); sk != nil && pref.PreferredSections.Contains(*sk) {
		bonus += bonusSection
	}
	if req.IsPrimeShift {
		bonus += bonusPrime
	}
	if bonus > 100 {
		bonus = 100
	}
	return bonus
}

func shiftTypeOf(startMinute int) models.ShiftType {
	hour := startMinute / 60
	switch {
	case hour < 11:
		return models.ShiftTypeMorning
	case hour < 16:
		return models.ShiftTypeAfternoon
	case hour < 21:
		return models.ShiftTypeEvening
	default:
		return models.ShiftTypeClosing
	}
}

func sectionKey(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// reasoningLines produces the structured rule lines §4.11 step 6
// requires, one per contributing factor.
func reasoningLines(req models.StaffingRequirement, total, prefBonus, fairImpact float64, forecastTrend string) []string {
	lines := []string{
		"availability: hard constraints satisfied for this slot",
	}
	if prefBonus > 0 {
		lines = append(lines, "preference: matched role, shift-type, section, or prime-time preference")
	}
	if fairImpact > 0 {
		lines = append(lines, "fairness: this assignment reduces hours inequality versus the running state")
	}
	lines = append(lines, "forecast: demand trend "+forecastTrend+" informed this slot's staffing level")
	return lines
}
