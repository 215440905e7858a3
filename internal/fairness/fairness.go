// Package fairness implements the Fairness Evaluator (C9): Gini
// coefficients, standard deviation, and per-waiter fairness scores
// over a set of assigned hours (spec.md §4.9).
package fairness

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// WaiterHours is one waiter's hours for a fairness computation.
type WaiterHours struct {
	WaiterID   uuid.UUID
	Hours      float64
	PrimeHours float64
}

// Result is the full §4.9 output for one hours distribution.
type Result struct {
	HoursGini      float64
	PrimeGini      float64
	HoursStdDev    float64
	IsBalanced     bool
	Rating         Rating
	FairnessScores map[uuid.UUID]float64
}

// Rating enumerates the §4.9 Gini quality bands.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

const balancedThreshold = 0.25

// Evaluate computes hours_gini, prime_gini, hours_std_dev, per-waiter
// fairness_score, is_balanced, and rating over a waiter hours
// distribution, per §4.9.
func Evaluate(waiters []WaiterHours) Result {
	hours := make([]float64, len(waiters))
	prime := make([]float64, len(waiters))
	for i, w := range waiters {
		hours[i] = w.Hours
		prime[i] = w.PrimeHours
	}

	hoursGini := Gini(hours)
	scores := make(map[uuid.UUID]float64, len(waiters))
	n := float64(len(waiters))
	total := sum(hours)
	for _, w := range waiters {
		share := 0.0
		if total > 0 {
			share = w.Hours / total
		}
		fair := 50 - 50*math.Abs(share-1/max1(n))
		scores[w.WaiterID] = clamp(fair, 0, 100)
	}

	return Result{
		HoursGini:      hoursGini,
		PrimeGini:      Gini(prime),
		HoursStdDev:    stdDev(hours),
		IsBalanced:     hoursGini < balancedThreshold,
		Rating:         rate(hoursGini),
		FairnessScores: scores,
	}
}

// Gini computes the standard Gini coefficient G = Σ|xi−xj| / (2·N·Σxi),
// per §4.9. An all-zero or single-sample distribution is defined as
// perfectly equal (0).
func Gini(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	total := sum(values)
	if total == 0 {
		return 0
	}
	var diffSum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			diffSum += math.Abs(values[i] - values[j])
		}
	}
	gini := diffSum / (2 * float64(n) * total)
	return clamp(gini, 0, 1)
}

func rate(gini float64) Rating {
	switch {
	case gini < 0.10:
		return RatingExcellent
	case gini < 0.20:
		return RatingGood
	case gini < 0.30:
		return RatingFair
	default:
		return RatingPoor
	}
}

func stdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := sum(values) / float64(n)
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max1(n float64) float64 {
	if n < 1 {
		return 1
	}
	return n
}

// SortedWaiterIDs returns the waiter ids of a FairnessScores map in a
// deterministic order, used by callers that need stable iteration
// (e.g. reasoning generation).
func SortedWaiterIDs(scores map[uuid.UUID]float64) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
