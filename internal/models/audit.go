package models

import (
	"time"
)

// DeveloperLog is an append-only audit record. Entries are written for
// operational trace only and are never read back through the API.
type DeveloperLog struct {
	ID        string    `json:"id" db:"id"`
	Action    string    `json:"action" db:"action"`
	UserID    string    `json:"user_id,omitempty" db:"user_id"`
	ScanID    string    `json:"scan_id,omitempty" db:"scan_id"`
	ScanType  string    `json:"scan_type,omitempty" db:"scan_type"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

const (
	ActionUserRegistered = "user_registered"
	ActionScanAnalyzed   = "scan_analyzed"
)
