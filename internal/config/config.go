// Package config loads the immutable configuration snapshot every
// component is constructed with. Per the redesign flag in spec.md §9
// ("ambient configuration via globals"), nothing in internal/ reads
// os.Getenv directly past this package; a hot reload is a new
// Snapshot handed to a supervised reconfigure call, not a live mutation.
package config

import (
	"os"
	"strconv"
	"time"
)

// Snapshot is the environment-derived configuration shared across the
// pipeline, router, and scheduling engine (§6 "Environment knobs").
type Snapshot struct {
	CaptureInterval      time.Duration
	VideoSourceTimeout   time.Duration
	MaxInFlightPerCamera int
	ClassifierEndpoint   string
	CropsBaseDir         string
	AttemptTimeout       time.Duration
	MaxDispatchAttempts  int

	DBDriver string // "sqlite" | "mysql"
	DBDSN    string
	HTTPPort string
}

const (
	defaultCaptureInterval      = 5 * time.Second
	defaultVideoSourceTimeout   = 10 * time.Second
	defaultMaxInFlightPerCamera = 4
	defaultAttemptTimeout       = 30 * time.Second
	defaultMaxDispatchAttempts  = 3
)

// FromEnv builds a Snapshot from process environment variables,
// falling back to §6's stated defaults when unset or unparsable.
// Loading .env beforehand (via godotenv) is the caller's responsibility.
func FromEnv() Snapshot {
	return Snapshot{
		CaptureInterval:      durationSecondsEnv("CAPTURE_INTERVAL_SECONDS", defaultCaptureInterval),
		VideoSourceTimeout:   durationSecondsEnv("VIDEO_SOURCE_TIMEOUT_SECONDS", defaultVideoSourceTimeout),
		MaxInFlightPerCamera: intEnv("MAX_IN_FLIGHT_PER_CAMERA", defaultMaxInFlightPerCamera),
		ClassifierEndpoint:   stringEnv("CLASSIFIER_ENDPOINT", ""),
		CropsBaseDir:         stringEnv("CROPS_BASE_DIR", "./crops"),
		AttemptTimeout:       defaultAttemptTimeout,
		MaxDispatchAttempts:  defaultMaxDispatchAttempts,
		DBDriver:             stringEnv("DB_DRIVER", "sqlite"),
		DBDSN:                stringEnv("DB_DSN", "file:brigade.db?cache=shared&_pragma=foreign_keys(1)"),
		HTTPPort:             stringEnv("PORT", "8080"),
	}
}

func durationSecondsEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func stringEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// RestaurantConfig is the structured per-restaurant configuration map
// described in §6, parsed into typed fields with sane defaults so
// callers never have to guard against missing keys.
type RestaurantConfig struct {
	RoutingMode               string // "section" | "rotation"
	MaxTablesPerWaiter        int
	EfficiencyWeight          float64
	WorkloadPenalty           float64
	TipPenalty                float64
	RecencyPenaltyMinutes     int
	RecencyPenaltyWeight      float64
	UnderstaffedThreshold     float64
	OverstaffedThreshold      float64
}

// DefaultRestaurantConfig returns the §4.7 defaults.
func DefaultRestaurantConfig() RestaurantConfig {
	return RestaurantConfig{
		RoutingMode:           "rotation",
		MaxTablesPerWaiter:    5,
		EfficiencyWeight:      1.0,
		WorkloadPenalty:       3.0,
		TipPenalty:            2.0,
		RecencyPenaltyMinutes: 5,
		RecencyPenaltyWeight:  1.5,
		UnderstaffedThreshold: 0.8,
		OverstaffedThreshold:  1.3,
	}
}

// Merge overlays the keys present in a raw key/value map (as stored on
// the Restaurant entity) atop the defaults, following §6's key table.
// A present numeric value is applied even when it is zero; an empty
// routing.mode string is ignored.
func (rc RestaurantConfig) Merge(raw map[string]any) RestaurantConfig {
	out := rc
	if v, ok := raw["routing.mode"].(string); ok && v != "" {
		out.RoutingMode = v
	}
	if v, ok := numeric(raw["routing.max_tables_per_waiter"]); ok {
		out.MaxTablesPerWaiter = int(v)
	}
	if v, ok := numeric(raw["routing.efficiency_weight"]); ok {
		out.EfficiencyWeight = v
	}
	if v, ok := numeric(raw["routing.workload_penalty"]); ok {
		out.WorkloadPenalty = v
	}
	if v, ok := numeric(raw["routing.tip_penalty"]); ok {
		out.TipPenalty = v
	}
	if v, ok := numeric(raw["routing.recency_penalty_minutes"]); ok {
		out.RecencyPenaltyMinutes = int(v)
	}
	if v, ok := numeric(raw["routing.recency_penalty_weight"]); ok {
		out.RecencyPenaltyWeight = v
	}
	if v, ok := numeric(raw["alerts.understaffed_threshold"]); ok {
		out.UnderstaffedThreshold = v
	}
	if v, ok := numeric(raw["alerts.overstaffed_threshold"]); ok {
		out.OverstaffedThreshold = v
	}
	return out
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
