package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is the root entity. Every other entity in this package is
// owned by exactly one Restaurant and cascade-deletes with it.
type Restaurant struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:'UTC'"`
	Config    JSONMap   `gorm:"type:json"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Section is a named area inside a Restaurant holding an ordered
// sequence of Tables.
type Section struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	RestaurantID uuid.UUID `gorm:"type:char(36);not null;index"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Position     int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
