package models

import (
	"time"

	"github.com/google/uuid"
)

// TableState enumerates the §3 table state machine's states.
type TableState string

const (
	TableClean       TableState = "clean"
	TableOccupied    TableState = "occupied"
	TableDirty       TableState = "dirty"
	TableReserved    TableState = "reserved"
	TableUnavailable TableState = "unavailable"
)

// TableType and TableLocation are the preference vocabularies from §6
// (superset resolving the Open Question on waitlist preference terms).
type TableType string

const (
	TableTypeBooth TableType = "booth"
	TableTypeBar   TableType = "bar"
	TableTypeTable TableType = "table"
)

type TableLocation string

const (
	LocationInside  TableLocation = "inside"
	LocationOutside TableLocation = "outside"
	LocationPatio   TableLocation = "patio"
)

// StateSource records who/what caused a table-state transition.
type StateSource string

const (
	SourceML     StateSource = "ml"
	SourceHost   StateSource = "host"
	SourceSystem StateSource = "system"
)

// Table is a physical seat group. §3 invariant: State == occupied iff
// CurrentVisitID is a non-nil open Visit.
type Table struct {
	ID              uuid.UUID     `gorm:"type:char(36);primaryKey"`
	RestaurantID    uuid.UUID     `gorm:"type:char(36);not null;index"`
	SectionID       uuid.UUID     `gorm:"type:char(36);index"`
	Number          int           `gorm:"not null"`
	Capacity        int           `gorm:"not null"`
	Type            TableType     `gorm:"type:varchar(16);not null"`
	Location        TableLocation `gorm:"type:varchar(16);not null"`
	State           TableState    `gorm:"type:varchar(16);not null;default:'clean'"`
	StateConfidence float64       `gorm:"not null;default:1"`
	StateUpdatedAt  time.Time     `gorm:"not null"`
	CurrentVisitID  *uuid.UUID    `gorm:"type:char(36)"`
	CreatedAt       time.Time     `gorm:"not null"`
	UpdatedAt       time.Time     `gorm:"not null"`
}

// TableStateLog is the append-only audit trail for table transitions
// (§3, §4.2). Exactly one row is appended per accepted transition.
type TableStateLog struct {
	ID         uuid.UUID   `gorm:"type:char(36);primaryKey"`
	TableID    uuid.UUID   `gorm:"type:char(36);not null;index"`
	Previous   TableState  `gorm:"type:varchar(16);not null"`
	Next       TableState  `gorm:"type:varchar(16);not null"`
	Confidence float64     `gorm:"not null"`
	Source     StateSource `gorm:"type:varchar(16);not null"`
	// Provenance holds the model id (ml), user id (host), or operation
	// name (system) that caused the transition, per §4.2.
	Provenance string    `gorm:"type:varchar(255)"`
	CreatedAt  time.Time `gorm:"not null"`
}
