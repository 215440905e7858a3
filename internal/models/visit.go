package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit is one table occupancy. §3 invariant: Duration is computed
// only once ClearedAt is set; TipPct only once Total and Tip are set.
type Visit struct {
	ID               uuid.UUID  `gorm:"type:char(36);primaryKey"`
	RestaurantID     uuid.UUID  `gorm:"type:char(36);not null;index"`
	TableID          uuid.UUID  `gorm:"type:char(36);not null;index"`
	WaiterID         uuid.UUID  `gorm:"type:char(36);not null;index"`
	OriginalWaiterID *uuid.UUID `gorm:"type:char(36)"` // set on transfer
	WaitlistEntryID  *uuid.UUID `gorm:"type:char(36)"`
	PartySize        int        `gorm:"not null"`
	ActualCovers     int        `gorm:"not null;default:0"`

	SeatedAt      time.Time  `gorm:"not null"`
	FirstServedAt *time.Time
	PaymentAt     *time.Time
	ClearedAt     *time.Time

	Subtotal float64 `gorm:"not null;default:0"`
	Tax      float64 `gorm:"not null;default:0"`
	Total    float64 `gorm:"not null;default:0"`
	Tip      float64 `gorm:"not null;default:0"`
	TipPct   float64 `gorm:"not null;default:0"`

	// DurationSeconds is computed once on Close; 0 while open.
	DurationSeconds int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// IsOpen reports whether the visit has not yet been cleared.
func (v Visit) IsOpen() bool { return v.ClearedAt == nil }

// Recompute derives DurationSeconds and TipPct from the current fields,
// following §3's invariant ("computed when cleared" / "computed when
// total+tip set"). Callers invoke this before persisting.
func (v *Visit) Recompute() {
	if v.ClearedAt != nil {
		v.DurationSeconds = int(v.ClearedAt.Sub(v.SeatedAt).Seconds())
	}
	if v.Total > 0 {
		v.TipPct = v.Tip / v.Total * 100
	}
}

// WaitlistStatus enumerates §3 waitlist states.
type WaitlistStatus string

const (
	WaitlistWaiting    WaitlistStatus = "waiting"
	WaitlistSeated     WaitlistStatus = "seated"
	WaitlistWalkedAway WaitlistStatus = "walked_away"
)

// TablePreference and LocationPreference adopt the §9 superset
// {booth,bar,table,none} / {inside,outside,patio,none}.
type TablePreference string

const (
	PrefBooth TablePreference = "booth"
	PrefBar   TablePreference = "bar"
	PrefTable TablePreference = "table"
	PrefNone  TablePreference = "none"
)

type LocationPreference string

const (
	LocPrefInside  LocationPreference = "inside"
	LocPrefOutside LocationPreference = "outside"
	LocPrefPatio   LocationPreference = "patio"
	LocPrefNone    LocationPreference = "none"
)

// WaitlistEntry is a queued party.
type WaitlistEntry struct {
	ID                 uuid.UUID           `gorm:"type:char(36);primaryKey"`
	RestaurantID       uuid.UUID           `gorm:"type:char(36);not null;index"`
	PartySize          int                 `gorm:"not null"`
	TablePreference    TablePreference     `gorm:"type:varchar(16);not null;default:'none'"`
	LocationPreference LocationPreference  `gorm:"type:varchar(16);not null;default:'none'"`
	HardPreference     bool                `gorm:"not null;default:false"`
	Status             WaitlistStatus      `gorm:"type:varchar(16);not null;default:'waiting'"`
	VisitID            *uuid.UUID          `gorm:"type:char(36)"`
	CreatedAt          time.Time           `gorm:"not null"`
	UpdatedAt          time.Time           `gorm:"not null"`
}
