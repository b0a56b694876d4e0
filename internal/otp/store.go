// Package otp manages one-time-passcode verification sessions: transient
// state keyed by email, living between signup/signin initiation and code
// verification.
package otp

import (
	"context"
	"errors"
	"time"

	"github.com/arthive/arthive/internal/models"
)

// ErrNoSession is returned when no pending entry exists for an email, or
// the entry has expired. Expired and absent are deliberately
// indistinguishable.
var ErrNoSession = errors.New("otp: no pending session")

// SessionStore holds pending verifications. Put atomically overwrites any
// prior entry for the same email, so a reader never observes a mix of two
// entries.
type SessionStore interface {
	Put(ctx context.Context, email string, pending *models.PendingAuth, ttl time.Duration) error
	Get(ctx context.Context, email string) (*models.PendingAuth, error)
	Delete(ctx context.Context, email string) error
}
