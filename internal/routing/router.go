// Package routing implements the Fairness-First Party Router (C7):
// recommending a (waiter, table) pair for a party and seating it under
// a per-restaurant lock (spec.md §4.7).
package routing

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/config"
	"github.com/brigadeops/core/internal/models"
	"github.com/brigadeops/core/internal/store"
)

const component = "routing"

// NoMatchKind enumerates §4.7's three failure reasons.
type NoMatchKind string

const (
	NoTables                NoMatchKind = "NoTables"
	NoWaiters               NoMatchKind = "NoWaiters"
	PreferenceUnsatisfiable NoMatchKind = "PreferenceUnsatisfiable"
)

// Request is either a reference to a queued WaitlistEntry or an inline
// party size + preference pair, per §4.7's entry point signature.
type Request struct {
	WaitlistEntryID    *uuid.UUID
	PartySize          int
	TablePreference    models.TablePreference
	LocationPreference models.LocationPreference
	HardPreference     bool
}

// Recommendation is the Router's successful output; Seat persists it.
type Recommendation struct {
	Table      models.Table
	Waiter     models.Waiter
	TableScore int
	Priority   float64
	PartySize  int
}

// NoMatch reports why no recommendation could be produced.
type NoMatch struct {
	Kind NoMatchKind
}

func (n NoMatch) Error() string { return string(n.Kind) }

// routerStore is the narrow store slice the Router depends on,
// declared as an interface so tests can substitute a fake without a
// database.
type routerStore interface {
	GetRestaurant(id uuid.UUID) (models.Restaurant, error)
	GetWaiter(id uuid.UUID) (models.Waiter, error)
	GetWaitlistEntry(id uuid.UUID) (models.WaitlistEntry, error)
	GetTable(id uuid.UUID) (models.Table, error)
	FindAvailableTables(restaurantID uuid.UUID, partySize int, prefs store.TablePreferences) ([]store.TableMatch, error)
	ListCandidateWaiters(restaurantID uuid.UUID, sectionID *uuid.UUID) ([]models.ShiftSnapshot, error)
	CreateVisitAndSeat(visit *models.Visit) error
}

// Router recommends and seats parties.
type Router struct {
	store routerStore
	locks *store.RestaurantLocks
	cfg   config.Snapshot
	log   *logrus.Logger
}

func New(s routerStore, locks *store.RestaurantLocks, cfg config.Snapshot, log *logrus.Logger) *Router {
	return &Router{store: s, locks: locks, cfg: cfg, log: log}
}

// Recommend runs the §4.7 algorithm. It performs no writes.
func (r *Router) Recommend(ctx context.Context, restaurantID uuid.UUID, req Request) (Recommendation, error) {
	partySize, tablePref, locPref, hardPref, err := r.resolveRequest(restaurantID, req)
	if err != nil {
		return Recommendation{}, err
	}

	rc := config.DefaultRestaurantConfig()
	if restaurant, gerr := r.store.GetRestaurant(restaurantID); gerr == nil {
		rc = rc.Merge(restaurant.Config)
	}

	// Step 1: table filtering + scoring.
	matches, err := r.store.FindAvailableTables(restaurantID, partySize, store.TablePreferences{
		Type: tablePref, Location: locPref,
	})
	if err != nil {
		return Recommendation{}, err
	}
	if len(matches) == 0 {
		return Recommendation{}, NoMatch{NoTables}
	}
	if hardPref && !anyExactMatch(matches, tablePref, locPref) {
		return Recommendation{}, NoMatch{PreferenceUnsatisfiable}
	}

	// Step 2: mode-gated waiter set.
	snapshots, err := r.store.ListCandidateWaiters(restaurantID, nil)
	if err != nil {
		return Recommendation{}, err
	}
	if rc.RoutingMode == "section" {
		sectioned := make(map[uuid.UUID]bool)
		for _, m := range matches {
			sectioned[m.Table.SectionID] = true
		}
		filtered := make([]models.ShiftSnapshot, 0, len(snapshots))
		for _, snap := range snapshots {
			if snap.Shift.SectionID != nil && sectioned[*snap.Shift.SectionID] {
				filtered = append(filtered, snap)
			}
		}
		snapshots = filtered
	}
	if len(snapshots) == 0 {
		return Recommendation{}, NoMatch{NoWaiters}
	}

	// Steps 3-4: priority scoring with underserved override.
	candidates, err := r.scoreWaiters(snapshots, rc)
	if err != nil {
		return Recommendation{}, err
	}
	top := pickTop(candidates)

	// Step 5: final selection — highest table_score among the winning
	// waiter's valid tables. Section mode restricts this further to
	// tables in the winning waiter's own section, not merely the
	// sections reachable by the whole candidate set; rotation mode
	// leaves every returned table valid for every candidate waiter.
	tableCandidates := matches
	if rc.RoutingMode == "section" && top.sectionID != nil {
		tableCandidates = tablesInSection(matches, *top.sectionID)
	}
	best := bestTable(tableCandidates)

	return Recommendation{
		Table:      best.Table,
		Waiter:     top.waiter,
		TableScore: best.Score,
		Priority:   top.priority,
		PartySize:  partySize,
	}, nil
}

// Seat persists a Recommendation as a Visit and transitions the table,
// under the per-restaurant lock §5 requires so two concurrent seatings
// never pick the same table. The loser of the race observes Conflict
// because CreateVisitAndSeat re-checks table state inside its own
// transaction.
func (r *Router) Seat(ctx context.Context, restaurantID uuid.UUID, rec Recommendation, waitlistEntryID *uuid.UUID) (models.Visit, error) {
	unlock := r.locks.Lock(restaurantID)
	defer unlock()

	table, err := r.store.GetTable(rec.Table.ID)
	if err != nil {
		return models.Visit{}, err
	}

	visit := &models.Visit{
		RestaurantID:    restaurantID,
		TableID:         table.ID,
		WaiterID:        rec.Waiter.ID,
		PartySize:       rec.PartySize,
		WaitlistEntryID: waitlistEntryID,
		SeatedAt:        time.Now(),
	}
	if err := r.store.CreateVisitAndSeat(visit); err != nil {
		return models.Visit{}, err
	}
	return *visit, nil
}

func (r *Router) resolveRequest(restaurantID uuid.UUID, req Request) (partySize int, tablePref models.TablePreference, locPref models.LocationPreference, hardPref bool, err error) {
	if req.WaitlistEntryID != nil {
		entry, gerr := r.store.GetWaitlistEntry(*req.WaitlistEntryID)
		if gerr != nil {
			return 0, "", "", false, gerr
		}
		return entry.PartySize, entry.TablePreference, entry.LocationPreference, entry.HardPreference, nil
	}
	if req.PartySize <= 0 {
		return 0, "", "", false, apperr.New(component, apperr.KindInput, "party size required")
	}
	return req.PartySize, req.TablePreference, req.LocationPreference, req.HardPreference, nil
}

func anyExactMatch(matches []store.TableMatch, tablePref models.TablePreference, locPref models.LocationPreference) bool {
	for _, m := range matches {
		typeOK := tablePref == "" || tablePref == models.PrefNone || string(tablePref) == string(m.Table.Type)
		locOK := locPref == "" || locPref == models.LocPrefNone || string(locPref) == string(m.Table.Location)
		if typeOK && locOK {
			return true
		}
	}
	return false
}

func bestTable(matches []store.TableMatch) store.TableMatch {
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score ||
			(m.Score == best.Score && m.Table.Number < best.Table.Number) {
			best = m
		}
	}
	return best
}

// tablesInSection narrows matches to one waiter's section. An empty
// result falls back to the unfiltered set rather than leaving
// bestTable nothing to pick from — it should not happen, since
// section mode only ever admits waiters whose section already
// produced at least one of matches, but a fallback is cheaper than a
// new NoMatch reason.
func tablesInSection(matches []store.TableMatch, sectionID uuid.UUID) []store.TableMatch {
	filtered := make([]store.TableMatch, 0, len(matches))
	for _, m := range matches {
		if m.Table.SectionID == sectionID {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return matches
	}
	return filtered
}

// waiterCandidate carries the §4.7 step 3 priority score alongside the
// raw covers/tips the step 4 underserved override compares to the
// candidate set's mean.
type waiterCandidate struct {
	waiter        models.Waiter
	priority      float64
	recencyActive bool
	covers        int
	tips          float64
	sectionID     *uuid.UUID
}

// scoreWaiters computes the §4.7 step 3 priority formula for every
// candidate:
//
//	priority = composite_score·W_eff − (current_tables/max_tables)·W_work
//	           − (tips_i / max(Σtips,1))·W_tip − recency_penalty
func (r *Router) scoreWaiters(snapshots []models.ShiftSnapshot, rc config.RestaurantConfig) ([]waiterCandidate, error) {
	var totalTips float64
	for _, s := range snapshots {
		totalTips += s.Shift.Tips
	}

	now := time.Now()
	recencyWindow := time.Duration(rc.RecencyPenaltyMinutes) * time.Minute

	candidates := make([]waiterCandidate, 0, len(snapshots))
	for _, snap := range snapshots {
		waiter, err := r.store.GetWaiter(snap.Shift.WaiterID)
		if err != nil {
			return nil, err
		}

		recencyActive := snap.Shift.LastSeatedAt != nil && now.Sub(*snap.Shift.LastSeatedAt) < recencyWindow
		recencyPenalty := 0.0
		if recencyActive {
			recencyPenalty = rc.RecencyPenaltyWeight
		}

		workloadRatio := float64(snap.CurrentTables) / max1f(float64(rc.MaxTablesPerWaiter))
		tipShare := snap.Shift.Tips / max1f(totalTips)

		priority := waiter.CompositeScore*rc.EfficiencyWeight -
			workloadRatio*rc.WorkloadPenalty -
			tipShare*rc.TipPenalty -
			recencyPenalty

		candidates = append(candidates, waiterCandidate{
			waiter:        waiter,
			priority:      priority,
			recencyActive: recencyActive,
			covers:        snap.Shift.Covers,
			tips:          snap.Shift.Tips,
			sectionID:     snap.Shift.SectionID,
		})
	}
	return candidates, nil
}

func max1f(f float64) float64 {
	if f < 1 {
		return 1
	}
	return f
}

// pickTop applies §4.7 step 4: if the top-scoring waiter has an active
// recency penalty, an underserved candidate (covers and tips both
// below half the candidate-set mean) is promoted above it instead.
func pickTop(candidates []waiterCandidate) waiterCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})
	top := candidates[0]
	if !top.recencyActive {
		return top
	}

	var meanCovers, meanTips float64
	for _, c := range candidates {
		meanCovers += float64(c.covers)
		meanTips += c.tips
	}
	n := max1f(float64(len(candidates)))
	meanCovers /= n
	meanTips /= n

	for _, c := range candidates {
		if float64(c.covers) < 0.5*meanCovers && c.tips < 0.5*meanTips {
			return c
		}
	}
	return top
}
