package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/MediVision-io/medivision/internal/models"
	"github.com/MediVision-io/medivision/internal/store"
)

// UserStore implements store.UserStore on SQL
type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a new user. The email is compared exactly as stored, with
// no case folding.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	var exists bool
	err := s.db.conn.QueryRowContext(ctx,
		s.db.rebind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"),
		user.Email,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return store.ErrDuplicateEmail
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.conn.ExecContext(ctx,
		s.db.rebind("INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)"),
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by id
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getOne(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by email
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, "SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?", email)
}

func (s *UserStore) getOne(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(query), arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
