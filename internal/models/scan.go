package models

import (
	"time"
)

// ScanStatus represents the current state of a scan's analysis
type ScanStatus string

const (
	ScanStatusProcessing ScanStatus = "processing"
	ScanStatusCompleted  ScanStatus = "completed"
	ScanStatusFailed     ScanStatus = "failed"
)

// Terminal returns true once a scan has reached a final state
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// Scan represents a single uploaded medical image and its analysis outcome
type Scan struct {
	ID          string         `json:"id" db:"id"`
	UserID      string         `json:"user_id" db:"user_id"`
	ScanType    string         `json:"scan_type" db:"scan_type"` // xray, mri, ct_scan, ...
	FileName    string         `json:"file_name" db:"file_name"`
	ImageBase64 string         `json:"image_base64,omitempty" db:"image_base64"`
	Status      ScanStatus     `json:"status" db:"status"`
	DoctorView  *DoctorReport  `json:"doctor_view,omitempty" db:"doctor_view"`
	PatientView *PatientReport `json:"patient_view,omitempty" db:"patient_view"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// DoctorReport is the clinician-facing half of an analysis result
type DoctorReport struct {
	Summary         string   `json:"summary"`
	Findings        []string `json:"findings"`
	Observations    []string `json:"observations"`
	Recommendations []string `json:"recommendations"`
	ConfidenceLevel string   `json:"confidence_level"`
	AreasOfConcern  []string `json:"areas_of_concern"`
}

// PatientReport is the plain-language half of an analysis result
type PatientReport struct {
	Summary     string   `json:"summary"`
	Findings    []string `json:"findings"`
	WhatItMeans string   `json:"what_it_means"`
	NextSteps   []string `json:"next_steps"`
	Reassurance string   `json:"reassurance"`
}

// AnalysisResult is the dual-audience report produced by the analysis gateway.
// Both views are always present: a parsed result carries the model's output
// and a fallback result carries synthesized placeholders.
type AnalysisResult struct {
	DoctorView  *DoctorReport  `json:"doctor_view"`
	PatientView *PatientReport `json:"patient_view"`
}

// ScanStats summarizes a user's scan history
type ScanStats struct {
	TotalScans     int            `json:"total_scans"`
	CompletedScans int            `json:"completed_scans"`
	ScanTypes      map[string]int `json:"scan_types"`
}
