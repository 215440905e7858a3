// Package constraints implements the Constraint Validator (C10): hard
// rejection rules and soft score deductions for a candidate shift
// assignment (spec.md §4.10).
package constraints

import (
	"time"

	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/models"
)

const (
	legalMaxHoursPerWeek = 48
	clopeningGapHours    = 10

	deductShiftType = 15
	deductSection   = 10
	deductClopening = 20
	deductUnderMin  = 5
)

// Rejection explains why a hard constraint failed.
type Rejection struct {
	Reason string
}

func (r Rejection) Error() string { return r.Reason }

// Evaluate runs every §4.10 hard constraint, returning a Rejection on
// the first one that fails. Soft deductions are computed separately by
// SoftScore once the hard constraints pass.
func Evaluate(
	waiter models.Waiter,
	pref models.StaffPreference,
	availability []models.StaffAvailability,
	existing []models.ScheduleItem,
	shiftDate time.Time,
	start, end int,
	role models.WaiterRole,
) *Rejection {
	// Day-of-week counts from Monday = 0, the same numbering the
	// scheduling engine uses when it dates a slot as weekStart + DayOfWeek.
	dow := (int(shiftDate.Weekday()) + 6) % 7

	if !coveredByAvailability(availability, dow, start, end) {
		return &Rejection{Reason: "no availability window covers this shift"}
	}
	if overlapsUnavailable(availability, dow, start, end) {
		return &Rejection{Reason: "overlaps an unavailable window"}
	}
	if !roleCompatible(waiter, pref, role) {
		return &Rejection{Reason: "role not compatible with waiter"}
	}

	hours := float64(end-start) / 60
	projectedWeekly := weeklyHours(existing, waiter.ID) + hours
	maxWeekly := pref.MaxHoursPerWeek
	if maxWeekly <= 0 {
		maxWeekly = 40
	}
	if projectedWeekly > maxWeekly || projectedWeekly > legalMaxHoursPerWeek {
		return &Rejection{Reason: "exceeds weekly hour cap"}
	}

	maxShifts := pref.MaxShiftsPerWeek
	if maxShifts <= 0 {
		maxShifts = 6
	}
	if weeklyShiftCount(existing, waiter.ID)+1 > maxShifts {
		return &Rejection{Reason: "exceeds weekly shift count cap"}
	}

	if overlapsExisting(existing, waiter.ID, shiftDate, start, end) {
		return &Rejection{Reason: "overlaps an already assigned shift"}
	}

	return nil
}

func coveredByAvailability(avail []models.StaffAvailability, dow, start, end int) bool {
	for _, a := range avail {
		if a.DayOfWeek != dow {
			continue
		}
		if a.Type != models.AvailAvailable && a.Type != models.AvailPreferred {
			continue
		}
		if a.StartMinute <= start && a.EndMinute >= end {
			return true
		}
	}
	return false
}

func overlapsUnavailable(avail []models.StaffAvailability, dow, start, end int) bool {
	for _, a := range avail {
		if a.DayOfWeek != dow || a.Type != models.AvailUnavailable {
			continue
		}
		if a.StartMinute < end && start < a.EndMinute {
			return true
		}
	}
	return false
}

func roleCompatible(waiter models.Waiter, pref models.StaffPreference, role models.WaiterRole) bool {
	if len(pref.PreferredRoles) > 0 {
		return pref.PreferredRoles.Contains(string(role))
	}
	return waiter.Role == role
}

func weeklyHours(existing []models.ScheduleItem, waiterID uuid.UUID) float64 {
	var total float64
	for _, item := range existing {
		if item.WaiterID != waiterID {
			continue
		}
		total += float64(item.EndMinute-item.StartMinute) / 60
	}
	return total
}

func weeklyShiftCount(existing []models.ScheduleItem, waiterID uuid.UUID) int {
	count := 0
	for _, item := range existing {
		if item.WaiterID == waiterID {
			count++
		}
	}
	return count
}

func overlapsExisting(existing []models.ScheduleItem, waiterID uuid.UUID, date time.Time, start, end int) bool {
	for _, item := range existing {
		if item.WaiterID != waiterID || !sameDay(item.ShiftDate, date) {
			continue
		}
		if item.StartMinute < end && start < item.EndMinute {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// SoftScore computes the §4.10 soft deductions, returning 100 minus
// every applicable penalty (never below 0). Hard constraints must
// already have passed; SoftScore does not re-check them.
func SoftScore(
	pref models.StaffPreference,
	shiftType models.ShiftType,
	sectionID *string,
	prevDayShift *models.ScheduleItem,
	nextDayShift *models.ScheduleItem,
	projectedWeeklyHours float64,
) float64 {
	score := 100.0

	if len(pref.ShiftTypes) > 0 && !pref.ShiftTypes.Contains(string(shiftType)) {
		score -= deductShiftType
	}
	if sectionID != nil && len(pref.PreferredSections) > 0 && !pref.PreferredSections.Contains(*sectionID) {
		score -= deductSection
	}
	if pref.AvoidClopening && isClopening(prevDayShift, nextDayShift) {
		score -= deductClopening
	}
	if pref.MinHoursPerWeek > 0 && projectedWeeklyHours < pref.MinHoursPerWeek {
		score -= deductUnderMin * (pref.MinHoursPerWeek - projectedWeeklyHours)
	}
	if score < 0 {
		score = 0
	}
	return score
}

// isClopening reports whether a closing shift on one day is followed
// by an opening shift the next with less than clopeningGapHours
// between them, per §4.10 and the GLOSSARY definition.
func isClopening(prevDayClose *models.ScheduleItem, nextDayOpen *models.ScheduleItem) bool {
	if prevDayClose == nil || nextDayOpen == nil {
		return false
	}
	closeAt := prevDayClose.ShiftDate.Add(time.Duration(prevDayClose.EndMinute) * time.Minute)
	openAt := nextDayOpen.ShiftDate.Add(time.Duration(nextDayOpen.StartMinute) * time.Minute)
	gap := openAt.Sub(closeAt).Hours()
	return gap >= 0 && gap < clopeningGapHours
}
