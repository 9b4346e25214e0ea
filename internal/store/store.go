package store

import (
	"context"
	"errors"

	"github.com/MediVision-io/medivision/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrScanNotFound   = errors.New("scan not found")
)

// UserStore handles user persistence. Emails are matched exactly as stored:
// no case folding or normalization is applied, so "A@x.com" and "a@x.com"
// are distinct accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ScanStore handles scan persistence. Every read and delete is scoped to the
// owning user; a scan id belonging to another user behaves like a missing
// scan.
type ScanStore interface {
	Create(ctx context.Context, scan *models.Scan) error
	// UpdateResult sets the terminal status and both report fields in a
	// single update. It is called exactly once per scan.
	UpdateResult(ctx context.Context, id string, status models.ScanStatus, doctor *models.DoctorReport, patient *models.PatientReport) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Scan, error)
	Get(ctx context.Context, id, userID string) (*models.Scan, error)
	Delete(ctx context.Context, id, userID string) error
	Stats(ctx context.Context, userID string) (*models.ScanStats, error)
}

// AuditLog records write-only developer trace entries.
type AuditLog interface {
	Append(ctx context.Context, entry *models.DeveloperLog) error
}
