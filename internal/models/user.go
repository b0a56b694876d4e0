package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account. PasswordHash is a bcrypt hash; the
// plaintext password is never persisted.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Verified     bool      `json:"verified" db:"verified"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// AuthFlow distinguishes the two OTP-gated flows.
type AuthFlow string

// OTP flows.
const (
	FlowRegister AuthFlow = "register"
	FlowLogin    AuthFlow = "login"
)

// PendingAuth is the transient state of an OTP verification attempt, keyed
// by email in the session store. For registration it carries the
// not-yet-persisted account material (password already hashed).
type PendingAuth struct {
	Code         string   `json:"code"`
	Flow         AuthFlow `json:"flow"`
	Username     string   `json:"username,omitempty"`
	PasswordHash string   `json:"password_hash,omitempty"`
}
