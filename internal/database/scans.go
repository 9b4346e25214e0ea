package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MediVision-io/medivision/internal/models"
	"github.com/MediVision-io/medivision/internal/store"
)

// ScanStore implements store.ScanStore on SQL. Reports are stored as JSON
// in nullable columns; a NULL column maps to an absent report.
type ScanStore struct {
	db *DB
}

func NewScanStore(db *DB) *ScanStore {
	return &ScanStore{db: db}
}

// Create inserts a new scan in processing state
func (s *ScanStore) Create(ctx context.Context, scan *models.Scan) error {
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now().UTC()
	}
	if scan.Status == "" {
		scan.Status = models.ScanStatusProcessing
	}

	doctor, err := marshalDoctor(scan.DoctorView)
	if err != nil {
		return err
	}
	patient, err := marshalPatient(scan.PatientView)
	if err != nil {
		return err
	}

	_, err = s.db.conn.ExecContext(ctx,
		s.db.rebind(`INSERT INTO scans (id, user_id, scan_type, file_name, image_base64, status, doctor_view, patient_view, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		scan.ID, scan.UserID, scan.ScanType, scan.FileName, scan.ImageBase64,
		string(scan.Status), doctor, patient, scan.CreatedAt,
	)
	return err
}

// UpdateResult sets the terminal status and both report fields in a single
// update statement.
func (s *ScanStore) UpdateResult(ctx context.Context, id string, status models.ScanStatus, doctor *models.DoctorReport, patient *models.PatientReport) error {
	doctorJSON, err := marshalDoctor(doctor)
	if err != nil {
		return err
	}
	patientJSON, err := marshalPatient(patient)
	if err != nil {
		return err
	}

	result, err := s.db.conn.ExecContext(ctx,
		s.db.rebind("UPDATE scans SET status = ?, doctor_view = ?, patient_view = ? WHERE id = ?"),
		string(status), doctorJSON, patientJSON, id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrScanNotFound
	}
	return nil
}

const scanColumns = "id, user_id, scan_type, file_name, image_base64, status, doctor_view, patient_view, created_at"

// ListByUser returns the user's scans, newest first
func (s *ScanStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Scan, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.conn.QueryContext(ctx,
		s.db.rebind("SELECT "+scanColumns+" FROM scans WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"),
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []*models.Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// Get retrieves a single scan scoped to its owner. A scan owned by another
// user is indistinguishable from a missing one.
func (s *ScanStore) Get(ctx context.Context, id, userID string) (*models.Scan, error) {
	row := s.db.conn.QueryRowContext(ctx,
		s.db.rebind("SELECT "+scanColumns+" FROM scans WHERE id = ? AND user_id = ?"),
		id, userID,
	)
	scan, err := scanRow(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrScanNotFound
	}
	if err != nil {
		return nil, err
	}
	return scan, nil
}

// Delete removes an owned scan
func (s *ScanStore) Delete(ctx context.Context, id, userID string) error {
	result, err := s.db.conn.ExecContext(ctx,
		s.db.rebind("DELETE FROM scans WHERE id = ? AND user_id = ?"),
		id, userID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrScanNotFound
	}
	return nil
}

// Stats aggregates a user's scan history. Type counts include every status.
func (s *ScanStore) Stats(ctx context.Context, userID string) (*models.ScanStats, error) {
	stats := &models.ScanStats{ScanTypes: make(map[string]int)}

	err := s.db.conn.QueryRowContext(ctx,
		s.db.rebind("SELECT COUNT(*) FROM scans WHERE user_id = ?"),
		userID,
	).Scan(&stats.TotalScans)
	if err != nil {
		return nil, err
	}

	err = s.db.conn.QueryRowContext(ctx,
		s.db.rebind("SELECT COUNT(*) FROM scans WHERE user_id = ? AND status = ?"),
		userID, string(models.ScanStatusCompleted),
	).Scan(&stats.CompletedScans)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.conn.QueryContext(ctx,
		s.db.rebind("SELECT scan_type, COUNT(*) FROM scans WHERE user_id = ? GROUP BY scan_type"),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var scanType string
		var count int
		if err := rows.Scan(&scanType, &count); err != nil {
			return nil, err
		}
		stats.ScanTypes[scanType] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(row rowScanner) (*models.Scan, error) {
	var scan models.Scan
	var status string
	var doctor, patient sql.NullString

	err := row.Scan(
		&scan.ID, &scan.UserID, &scan.ScanType, &scan.FileName, &scan.ImageBase64,
		&status, &doctor, &patient, &scan.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	scan.Status = models.ScanStatus(status)

	if doctor.Valid {
		scan.DoctorView = &models.DoctorReport{}
		if err := json.Unmarshal([]byte(doctor.String), scan.DoctorView); err != nil {
			return nil, fmt.Errorf("failed to decode doctor view for scan %s: %v", scan.ID, err)
		}
	}
	if patient.Valid {
		scan.PatientView = &models.PatientReport{}
		if err := json.Unmarshal([]byte(patient.String), scan.PatientView); err != nil {
			return nil, fmt.Errorf("failed to decode patient view for scan %s: %v", scan.ID, err)
		}
	}
	return &scan, nil
}

func marshalDoctor(r *models.DoctorReport) (interface{}, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func marshalPatient(r *models.PatientReport) (interface{}, error) {
	if r == nil {
		return nil, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
