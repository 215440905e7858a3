package models

import (
	"time"

	"github.com/google/uuid"
)

// Camera holds the per-camera video source and the last installed
// crop-JSON mapping (§6). CropJSON is the raw decoded payload; the
// json-table-id → physical Table mapping is derived from it by the
// classifier dispatcher and cached (§5 "Shared-resource policy").
type Camera struct {
	ID              uuid.UUID `gorm:"type:char(36);primaryKey"`
	RestaurantID    uuid.UUID `gorm:"type:char(36);not null;index"`
	CameraKey       string    `gorm:"type:varchar(100);not null"`
	VideoSourceURI  string    `gorm:"type:varchar(500);not null"`
	CropJSON        JSONMap   `gorm:"type:json"`
	// TableMapping maps a json-table-id (crop-JSON "id", stringified)
	// to the physical Table's uuid (stringified), set per-camera on
	// crop-JSON installation per §6.
	TableMapping    JSONMap   `gorm:"type:json"`
	LastCaptureAt   *time.Time
	LastFrameIndex  int64     `gorm:"not null;default:0"`
	Degraded        bool      `gorm:"not null;default:false"`
	DegradedReason  string    `gorm:"type:varchar(255)"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// DispatchStatus enumerates §4.5 CropDispatchLog states.
type DispatchStatus string

const (
	DispatchQueued     DispatchStatus = "queued"
	DispatchDispatched DispatchStatus = "dispatched"
	DispatchSucceeded  DispatchStatus = "succeeded"
	DispatchFailed     DispatchStatus = "failed"
)

// CropDispatchLog is uniquely keyed by (camera, json-table-id,
// frame-index); §4.5 relies on insertion failure for idempotence.
type CropDispatchLog struct {
	ID           uuid.UUID      `gorm:"type:char(36);primaryKey"`
	CameraID     uuid.UUID      `gorm:"type:char(36);not null;uniqueIndex:camera_table_frame"`
	JSONTableID  string         `gorm:"type:varchar(100);not null;uniqueIndex:camera_table_frame"`
	FrameIndex   int64          `gorm:"not null;uniqueIndex:camera_table_frame"`
	Status       DispatchStatus `gorm:"type:varchar(16);not null;default:'queued'"`
	Attempts     int            `gorm:"not null;default:0"`
	LastError    string         `gorm:"type:varchar(500)"`
	TableID      *uuid.UUID     `gorm:"type:char(36)"`
	Label        string         `gorm:"type:varchar(16)"`
	Confidence   float64        `gorm:"not null;default:0"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}
