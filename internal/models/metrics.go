package models

import (
	"time"

	"github.com/google/uuid"
)

// PeriodType enumerates §4.12 rollup granularities.
type PeriodType string

const (
	PeriodShift   PeriodType = "shift"
	PeriodHourly  PeriodType = "hourly"
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// WaiterMetrics is an idempotent upsert keyed by (waiter, period_type,
// period_start).
type WaiterMetrics struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	WaiterID     uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:waiter_period"`
	PeriodType   PeriodType `gorm:"type:varchar(16);not null;uniqueIndex:waiter_period"`
	PeriodStart  time.Time  `gorm:"not null;uniqueIndex:waiter_period"`
	Visits       int        `gorm:"not null;default:0"`
	Covers       int        `gorm:"not null;default:0"`
	Tips         float64    `gorm:"not null;default:0"`
	AvgTipPct    float64    `gorm:"not null;default:0"`
	AvgCheck     float64    `gorm:"not null;default:0"`
	AvgTurnSecs  float64    `gorm:"not null;default:0"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// RestaurantMetrics is an idempotent upsert keyed by (restaurant,
// period_type, period_start).
type RestaurantMetrics struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID    uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:restaurant_period"`
	PeriodType      PeriodType `gorm:"type:varchar(16);not null;uniqueIndex:restaurant_period"`
	PeriodStart     time.Time  `gorm:"not null;uniqueIndex:restaurant_period"`
	Parties         int        `gorm:"not null;default:0"`
	Covers          int        `gorm:"not null;default:0"`
	PeakOccupancy   int        `gorm:"not null;default:0"`
	Revenue         float64    `gorm:"not null;default:0"`
	AvgWaitSeconds  float64    `gorm:"not null;default:0"`
	CoversPerWaiter float64    `gorm:"not null;default:0"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// MenuItemMetrics is an idempotent upsert keyed by (restaurant,
// menu_item, period_type, period_start). The menu item catalogue
// itself lives outside the core (§1 non-goals); this rollup only needs
// an opaque MenuItemID key supplied by the caller.
type MenuItemMetrics struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID   uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:menu_period"`
	MenuItemID     uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:menu_period"`
	PeriodType     PeriodType `gorm:"type:varchar(16);not null;uniqueIndex:menu_period"`
	PeriodStart    time.Time  `gorm:"not null;uniqueIndex:menu_period"`
	Orders         int        `gorm:"not null;default:0"`
	Revenue        float64    `gorm:"not null;default:0"`
	HourlyOrders   JSONMap    `gorm:"type:json"` // hour-of-day ("00".."23") -> order count
	UpdatedAt      time.Time  `gorm:"not null"`
}
