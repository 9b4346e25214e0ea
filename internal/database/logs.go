package database

import (
	"context"
	"time"

	"github.com/MediVision-io/medivision/internal/models"
	"github.com/google/uuid"
)

// AuditLog implements store.AuditLog. Entries are insert-only; nothing in
// the service reads them back.
type AuditLog struct {
	db *DB
}

func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db}
}

// Append writes a single developer log entry
func (l *AuditLog) Append(ctx context.Context, entry *models.DeveloperLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := l.db.conn.ExecContext(ctx,
		l.db.rebind("INSERT INTO developer_logs (id, action, user_id, scan_id, scan_type, timestamp) VALUES (?, ?, ?, ?, ?, ?)"),
		entry.ID, entry.Action, nullable(entry.UserID), nullable(entry.ScanID), nullable(entry.ScanType), entry.Timestamp,
	)
	return err
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
