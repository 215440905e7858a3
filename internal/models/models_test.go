package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueScanRoundTrip(t *testing.T) {
	m := JSONMap{"routing.mode": "rotation", "routing.max_tables_per_waiter": 5.0}
	v, err := m.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "rotation", out["routing.mode"])
	assert.Equal(t, 5.0, out["routing.max_tables_per_waiter"])
}

func TestJSONMapValueHandlesNilAsEmptyObject(t *testing.T) {
	var m JSONMap
	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestJSONMapScanHandlesNullAndEmptyBytes(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(nil))
	assert.Equal(t, JSONMap{}, m)

	require.NoError(t, m.Scan([]byte{}))
	assert.Equal(t, JSONMap{}, m)
}

func TestJSONMapScanRejectsUnsupportedSource(t *testing.T) {
	var m JSONMap
	err := m.Scan(42)
	assert.Error(t, err)
}

func TestStringSliceValueScanRoundTrip(t *testing.T) {
	s := StringSlice{"patio", "inside"}
	v, err := s.Value()
	require.NoError(t, err)

	var out StringSlice
	require.NoError(t, out.Scan(v))
	assert.Equal(t, s, out)
}

func TestStringSliceContains(t *testing.T) {
	s := StringSlice{"a", "b"}
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
}

func TestStringSliceValueHandlesNilAsEmptyArray(t *testing.T) {
	var s StringSlice
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestVisitIsOpenReflectsClearedAt(t *testing.T) {
	v := Visit{}
	assert.True(t, v.IsOpen())

	now := time.Now()
	v.ClearedAt = &now
	assert.False(t, v.IsOpen())
}

func TestVisitRecomputeDerivesDurationAndTipPctOnlyWhenApplicable(t *testing.T) {
	seated := time.Now().Add(-45 * time.Minute)
	v := Visit{SeatedAt: seated}
	v.Recompute()
	assert.Equal(t, 0, v.DurationSeconds, "open visit has no duration yet")
	assert.Equal(t, 0.0, v.TipPct, "visit with no total has no tip percentage yet")

	cleared := seated.Add(45 * time.Minute)
	v.ClearedAt = &cleared
	v.Total = 100
	v.Tip = 18
	v.Recompute()
	assert.InDelta(t, 2700, v.DurationSeconds, 1)
	assert.InDelta(t, 18.0, v.TipPct, 0.001)
}
