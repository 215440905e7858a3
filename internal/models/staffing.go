package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilityType enumerates §3 StaffAvailability window types.
type AvailabilityType string

const (
	AvailAvailable   AvailabilityType = "available"
	AvailUnavailable AvailabilityType = "unavailable"
	AvailPreferred   AvailabilityType = "preferred"
)

// StaffAvailability is a recurring weekly window. The store does not
// check whether same-type windows on one day overlap.
type StaffAvailability struct {
	ID           uuid.UUID        `gorm:"type:char(36);primaryKey"`
	WaiterID     uuid.UUID        `gorm:"type:char(36);not null;index"`
	DayOfWeek    int              `gorm:"not null"` // 0..6, Monday = 0
	StartMinute  int              `gorm:"not null"` // minutes since midnight
	EndMinute    int              `gorm:"not null"`
	Type         AvailabilityType `gorm:"type:varchar(16);not null"`
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// ShiftType enumerates the §3 StaffPreference.ShiftTypes vocabulary.
type ShiftType string

const (
	ShiftTypeMorning   ShiftType = "morning"
	ShiftTypeAfternoon ShiftType = "afternoon"
	ShiftTypeEvening   ShiftType = "evening"
	ShiftTypeClosing   ShiftType = "closing"
)

// StaffPreference is one row per waiter.
type StaffPreference struct {
	WaiterID          uuid.UUID   `gorm:"type:char(36);primaryKey"`
	PreferredRoles    StringSlice `gorm:"type:json"`
	ShiftTypes        StringSlice `gorm:"type:json"`
	PreferredSections StringSlice `gorm:"type:json"`
	MaxHoursPerWeek   float64     `gorm:"not null;default:40"`
	MinHoursPerWeek   float64     `gorm:"not null;default:0"`
	MaxShiftsPerWeek  int         `gorm:"not null;default:6"`
	AvoidClopening    bool        `gorm:"not null;default:false"`
	CreatedAt         time.Time   `gorm:"not null"`
	UpdatedAt         time.Time   `gorm:"not null"`
}

// StaffingRequirement is one staffing slot definition.
type StaffingRequirement struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID uuid.UUID  `gorm:"type:char(36);not null;index"`
	DayOfWeek    int        `gorm:"not null"`
	StartMinute  int        `gorm:"not null"`
	EndMinute    int        `gorm:"not null"`
	Role         WaiterRole `gorm:"type:varchar(16);not null"`
	Min          int        `gorm:"not null"`
	Max          int        `gorm:"not null"`
	IsPrimeShift bool       `gorm:"not null;default:false"`
	SectionID    *uuid.UUID `gorm:"type:char(36)"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    time.Time  `gorm:"not null"`
}
