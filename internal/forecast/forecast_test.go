package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigadeops/core/internal/models"
)

func mondayAt(year, month, day, hour int) time.Time {
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
}

func TestForecastBucketsWeightedHistory(t *testing.T) {
	weekStart := mondayAt(2026, 8, 10, 0) // a Monday
	var visits []models.Visit
	// Same weekday/hour cell for the 3 preceding weeks, constant covers.
	for w := 1; w <= 3; w++ {
		seatedAt := weekStart.AddDate(0, 0, -7*w).Add(18 * time.Hour)
		visits = append(visits, models.Visit{SeatedAt: seatedAt, ActualCovers: 4})
	}

	buckets := Forecast(weekStart, visits)
	assert.Len(t, buckets, 1)
	// The weighted mean is 4; weekly totals [4,4,4,0,0,0,0,0] (most recent
	// first) are a rising trend, capped at +20%, so 4 * 1.2.
	assert.InDelta(t, 4.8, buckets[0].Baseline, 0.01)
	assert.LessOrEqual(t, buckets[0].LowerBand, buckets[0].Baseline)
	assert.GreaterOrEqual(t, buckets[0].UpperBand, buckets[0].Baseline)
}

func TestForecastFallsBackToPartySizeWhenNoActualCovers(t *testing.T) {
	weekStart := mondayAt(2026, 8, 10, 0)
	seatedAt := weekStart.AddDate(0, 0, -7).Add(19 * time.Hour)
	visits := []models.Visit{{SeatedAt: seatedAt, PartySize: 2, ActualCovers: 0}}

	buckets := Forecast(weekStart, visits)
	assert.Len(t, buckets, 1)
	// Party size 2, times the +20% trend cap (all covers fall in the most
	// recent week).
	assert.InDelta(t, 2.4, buckets[0].Baseline, 0.01)
}

func TestForecastIgnoresVisitsOutsideLookbackWindow(t *testing.T) {
	weekStart := mondayAt(2026, 8, 10, 0)
	tooOld := weekStart.AddDate(0, 0, -7*(lookbackWeeks+1)).Add(18 * time.Hour)
	inFuture := weekStart.AddDate(0, 0, 7)

	buckets := Forecast(weekStart, []models.Visit{
		{SeatedAt: tooOld, ActualCovers: 10},
		{SeatedAt: inFuture, ActualCovers: 10},
	})
	assert.Empty(t, buckets)
}

func TestLinearTrendMultiplierCapsAtTwentyPercent(t *testing.T) {
	// index 0 is the most recent week and carries the largest x (see
	// linearTrendMultiplier), so a spike there is a strong upward trend.
	m := linearTrendMultiplier([]float64{1000, 10, 10, 10, 10})
	assert.LessOrEqual(t, m, 1+trendCapPercent+1e-9)
	assert.GreaterOrEqual(t, m, 1.0)
}

func TestLinearTrendMultiplierFlatIsOne(t *testing.T) {
	m := linearTrendMultiplier([]float64{10, 10, 10, 10})
	assert.InDelta(t, 1.0, m, 0.01)
}

func TestLinearTrendMultiplierShortSeriesIsOne(t *testing.T) {
	assert.Equal(t, 1.0, linearTrendMultiplier([]float64{5}))
	assert.Equal(t, 1.0, linearTrendMultiplier(nil))
}

func TestMAPEAndRating(t *testing.T) {
	mape := MAPE([]float64{10, 20, 30}, []float64{11, 18, 30})
	assert.Greater(t, mape, 0.0)
	assert.Equal(t, RatingExcellent, RateMAPE(0.05))
	assert.Equal(t, RatingGood, RateMAPE(0.15))
	assert.Equal(t, RatingFair, RateMAPE(0.25))
	assert.Equal(t, RatingPoor, RateMAPE(0.5))
}

func TestMAPEMismatchedLengthsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, MAPE([]float64{1, 2}, []float64{1}))
	assert.Equal(t, 0.0, MAPE(nil, nil))
}

func TestWeeklyTotalsIndexesByWeeksAgoDeterministically(t *testing.T) {
	weekStart := mondayAt(2026, 8, 10, 0)
	visits := []models.Visit{
		{SeatedAt: weekStart.AddDate(0, 0, -7).Add(18 * time.Hour), ActualCovers: 5},
		{SeatedAt: weekStart.AddDate(0, 0, -14).Add(19 * time.Hour), ActualCovers: 3},
		{SeatedAt: weekStart.AddDate(0, 0, -14).Add(20 * time.Hour), PartySize: 2},
	}
	totals := WeeklyTotals(weekStart, visits)
	require.Len(t, totals, lookbackWeeks)
	assert.Equal(t, 5.0, totals[0])
	assert.Equal(t, 5.0, totals[1])

	// Running it again must produce the identical slice: no map iteration
	// involved, unlike Forecast's per-bucket ordering.
	again := WeeklyTotals(weekStart, visits)
	assert.Equal(t, totals, again)
}

func TestWeeklyMAPESeriesIsDeterministicAndOrderedOldestFirst(t *testing.T) {
	weekStart := mondayAt(2026, 8, 10, 0)
	var visits []models.Visit
	for w := 1; w <= 4; w++ {
		visits = append(visits, models.Visit{
			SeatedAt:     weekStart.AddDate(0, 0, -7*w).Add(18 * time.Hour),
			ActualCovers: 10 * w, // strictly increasing going further back => a clean trend to backtest
		})
	}
	series := WeeklyMAPESeries(weekStart, visits)
	require.Len(t, series, lookbackWeeks-1)

	again := WeeklyMAPESeries(weekStart, visits)
	assert.Equal(t, series, again)
}

func TestClassifyTrend(t *testing.T) {
	assert.Equal(t, TrendImproving, ClassifyTrend([]float64{0.3, 0.3, 0.05, 0.05}))
	assert.Equal(t, TrendDeclining, ClassifyTrend([]float64{0.05, 0.05, 0.3, 0.3}))
	assert.Equal(t, TrendStable, ClassifyTrend([]float64{0.1, 0.1, 0.11, 0.1}))
	assert.Equal(t, TrendStable, ClassifyTrend([]float64{0.1}))
}
