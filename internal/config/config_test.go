package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvFallsBackToDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("CAPTURE_INTERVAL_SECONDS")
	os.Unsetenv("MAX_IN_FLIGHT_PER_CAMERA")
	os.Unsetenv("DB_DRIVER")

	snap := FromEnv()
	assert.Equal(t, defaultCaptureInterval, snap.CaptureInterval)
	assert.Equal(t, defaultMaxInFlightPerCamera, snap.MaxInFlightPerCamera)
	assert.Equal(t, "sqlite", snap.DBDriver)
}

func TestFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("CAPTURE_INTERVAL_SECONDS", "9")
	t.Setenv("MAX_IN_FLIGHT_PER_CAMERA", "7")
	t.Setenv("DB_DRIVER", "mysql")

	snap := FromEnv()
	assert.Equal(t, 9*time.Second, snap.CaptureInterval)
	assert.Equal(t, 7, snap.MaxInFlightPerCamera)
	assert.Equal(t, "mysql", snap.DBDriver)
}

func TestFromEnvIgnoresInvalidIntegers(t *testing.T) {
	t.Setenv("MAX_IN_FLIGHT_PER_CAMERA", "not-a-number")
	snap := FromEnv()
	assert.Equal(t, defaultMaxInFlightPerCamera, snap.MaxInFlightPerCamera)
}

func TestDefaultRestaurantConfigMatchesSpecDefaults(t *testing.T) {
	rc := DefaultRestaurantConfig()
	assert.Equal(t, "rotation", rc.RoutingMode)
	assert.Equal(t, 5, rc.MaxTablesPerWaiter)
	assert.Equal(t, 0.8, rc.UnderstaffedThreshold)
}

func TestMergeOverlaysOnlyPresentKeys(t *testing.T) {
	rc := DefaultRestaurantConfig()
	merged := rc.Merge(map[string]any{
		"routing.mode":                  "section",
		"routing.max_tables_per_waiter": float64(8),
		"routing.efficiency_weight":     1.5,
	})
	assert.Equal(t, "section", merged.RoutingMode)
	assert.Equal(t, 8, merged.MaxTablesPerWaiter)
	assert.Equal(t, 1.5, merged.EfficiencyWeight)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3.0, merged.WorkloadPenalty)
}

func TestMergeIgnoresWrongTypedValues(t *testing.T) {
	rc := DefaultRestaurantConfig()
	merged := rc.Merge(map[string]any{
		"routing.mode":                  42,      // wrong type, ignored
		"routing.max_tables_per_waiter": "eight", // wrong type, ignored
	})
	assert.Equal(t, rc.RoutingMode, merged.RoutingMode)
	assert.Equal(t, rc.MaxTablesPerWaiter, merged.MaxTablesPerWaiter)
}
