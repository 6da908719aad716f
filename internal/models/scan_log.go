package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ScanStored  = "stored"
	ScanNoMatch = "no_match"
	ScanInvalid = "invalid"
)

// ScanLog records one image ingestion attempt.
type ScanLog struct {
	ID        uint           `gorm:"primaryKey"`
	ScannedAt time.Time      `gorm:"not null;index"`
	Engine    string         `gorm:"type:varchar(32);not null"`
	Format    string         `gorm:"type:varchar(32)"`
	Outcome   string         `gorm:"type:varchar(16);not null"`
	ReadingID *uint          `gorm:"index"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

// ScanPayload is the JSON document stored in ScanLog.Payload.
type ScanPayload struct {
	Text         string  `json:"text"`
	Confidence   float32 `json:"confidence,omitempty"`
	DurationMs   int64   `json:"duration_ms"`
	SourceFormat string  `json:"source_format,omitempty"`
	Error        string  `json:"error,omitempty"`
}
