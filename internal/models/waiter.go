package models

import (
	"time"

	"github.com/google/uuid"
)

// WaiterRole enumerates staff roles.
type WaiterRole string

const (
	RoleServer   WaiterRole = "server"
	RoleBartender WaiterRole = "bartender"
	RoleHost     WaiterRole = "host"
	RoleBusser   WaiterRole = "busser"
	RoleRunner   WaiterRole = "runner"
)

// WaiterTier is the coarse performance bucket derived from composite score.
type WaiterTier string

const (
	TierStrong     WaiterTier = "strong"
	TierStandard   WaiterTier = "standard"
	TierDeveloping WaiterTier = "developing"
)

// Waiter is a staff member.
type Waiter struct {
	ID             uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID   uuid.UUID  `gorm:"type:char(36);not null;index"`
	Name           string     `gorm:"type:varchar(255);not null"`
	Role           WaiterRole `gorm:"type:varchar(16);not null"`
	Tier           WaiterTier `gorm:"type:varchar(16);not null;default:'standard'"`
	CompositeScore float64    `gorm:"not null;default:0"`
	SectionID      *uuid.UUID `gorm:"type:char(36)"`
	LifetimeShifts int        `gorm:"not null;default:0"`
	LifetimeCovers int        `gorm:"not null;default:0"`
	LifetimeTips   float64    `gorm:"not null;default:0"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// ShiftStatus enumerates §3 shift states.
type ShiftStatus string

const (
	ShiftActive   ShiftStatus = "active"
	ShiftOnBreak  ShiftStatus = "on_break"
	ShiftEnded    ShiftStatus = "ended"
)

// Shift is one waiter work session. Invariant: at most one non-ended
// Shift per waiter (enforced in store.StartShift).
type Shift struct {
	ID             uuid.UUID   `gorm:"type:char(36);primaryKey"`
	RestaurantID   uuid.UUID   `gorm:"type:char(36);not null;index"`
	WaiterID       uuid.UUID   `gorm:"type:char(36);not null;index"`
	Status         ShiftStatus `gorm:"type:varchar(16);not null;default:'active'"`
	SectionID      *uuid.UUID  `gorm:"type:char(36)"`
	TablesServed   int         `gorm:"not null;default:0"`
	Covers         int         `gorm:"not null;default:0"`
	Tips           float64     `gorm:"not null;default:0"`
	Sales          float64     `gorm:"not null;default:0"`
	LastSeatedAt   *time.Time
	StartedAt      time.Time `gorm:"not null"`
	EndedAt        *time.Time
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// ShiftSnapshot is the read-only view the router and scheduling engine
// consult when ranking candidate waiters (§4.1 list_candidate_waiters).
type ShiftSnapshot struct {
	Shift        Shift
	CurrentTables int
}
