package models

import (
	"time"
)

// User represents a registered account in the system
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"` // Password hash is never sent to client
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
