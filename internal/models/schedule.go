package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus enumerates §3 Schedule states.
type ScheduleStatus string

const (
	ScheduleDraft     ScheduleStatus = "draft"
	SchedulePublished ScheduleStatus = "published"
	ScheduleArchived  ScheduleStatus = "archived"
)

// GeneratedBy records who produced a Schedule.
type GeneratedBy string

const (
	GeneratedManual     GeneratedBy = "manual"
	GeneratedEngine     GeneratedBy = "engine"
	GeneratedSuggestion GeneratedBy = "suggestion"
)

// Schedule is the weekly container. Unique per (restaurant, week_start,
// version); publishing increments version and archives the prior
// published schedule for the same week.
type Schedule struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey"`
	RestaurantID uuid.UUID      `gorm:"type:char(36);not null;uniqueIndex:restaurant_week_version"`
	WeekStart    time.Time      `gorm:"not null;uniqueIndex:restaurant_week_version"`
	Version      int            `gorm:"not null;default:1;uniqueIndex:restaurant_week_version"`
	Status       ScheduleStatus `gorm:"type:varchar(16);not null;default:'draft'"`
	GeneratedBy  GeneratedBy    `gorm:"type:varchar(16);not null;default:'manual'"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}

// ScheduleItem is one assigned shift within a Schedule.
type ScheduleItem struct {
	ID                   uuid.UUID  `gorm:"type:char(36);primaryKey"`
	ScheduleID           uuid.UUID  `gorm:"type:char(36);not null;index"`
	WaiterID             uuid.UUID  `gorm:"type:char(36);not null;index"`
	Role                 WaiterRole `gorm:"type:varchar(16);not null"`
	SectionID            *uuid.UUID `gorm:"type:char(36)"`
	ShiftDate            time.Time  `gorm:"not null"`
	StartMinute          int        `gorm:"not null"`
	EndMinute            int        `gorm:"not null"`
	Source               GeneratedBy `gorm:"type:varchar(16);not null;default:'engine'"`
	PreferenceMatchScore float64    `gorm:"not null;default:0"`
	FairnessImpactScore  float64    `gorm:"not null;default:0"`
	CreatedAt            time.Time  `gorm:"not null"`
	UpdatedAt            time.Time  `gorm:"not null"`
}

// ScheduleReasoning is one structured rationale per ScheduleItem.
type ScheduleReasoning struct {
	ScheduleItemID uuid.UUID   `gorm:"type:char(36);primaryKey"`
	Lines          StringSlice `gorm:"type:json"` // structured rule lines (§4.11 step 6)
	LLMParagraph   *string     `gorm:"type:text"` // optional, external collaborator
	CreatedAt      time.Time   `gorm:"not null"`
}

// RunStatus enumerates §4.11 ScheduleRun outcomes.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunRunning   RunStatus = "running"
)

// ScheduleRun captures one invocation of the Scheduling Engine (§4.11
// steps 1 and 7); supplemented relative to spec.md's §3 entity list
// because the algorithm needs somewhere to persist run-level status,
// the snapshot id, and summary metrics.
type ScheduleRun struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey"`
	RestaurantID     uuid.UUID `gorm:"type:char(36);not null;index"`
	ScheduleID       *uuid.UUID `gorm:"type:char(36)"`
	WeekStart        time.Time `gorm:"not null"`
	SnapshotID       uuid.UUID `gorm:"type:char(36);not null"`
	Status           RunStatus `gorm:"type:varchar(16);not null;default:'running'"`
	ErrorMessage     string    `gorm:"type:varchar(500)"`
	ItemsCreated     int       `gorm:"not null;default:0"`
	TotalHours       float64   `gorm:"not null;default:0"`
	CoveragePct      float64   `gorm:"not null;default:0"`
	FairnessGini     float64   `gorm:"not null;default:0"`
	PreferenceAvg    float64   `gorm:"not null;default:0"`
	ForecastTrend    string    `gorm:"type:varchar(16)"`
	UnderstaffedSlots int      `gorm:"not null;default:0"`
	StartedAt        time.Time `gorm:"not null"`
	FinishedAt       *time.Time
}
