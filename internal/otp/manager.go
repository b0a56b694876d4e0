package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/arthive/arthive/internal/mailer"
	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

const otpSubject = "Your ArtHive verification code"

// Manager runs the OTP verification state machine per email address:
// NONE -> PENDING on Initiate, PENDING -> consumed on a successful Verify.
type Manager struct {
	store  SessionStore
	sender mailer.Sender
	ttl    time.Duration
}

// NewManager wires a session store and a notification sender. ttl bounds
// how long a code stays verifiable.
func NewManager(store SessionStore, sender mailer.Sender, ttl time.Duration) *Manager {
	return &Manager{store: store, sender: sender, ttl: ttl}
}

// Initiate generates a code, emails it, and records the pending entry,
// overwriting any prior entry for the same email (the old code stops
// verifying). The email is sent before the entry is written: if delivery
// fails, no PENDING state is left behind and the caller sees
// notification_failed.
func (m *Manager) Initiate(ctx context.Context, email string, flow models.AuthFlow, username, passwordHash string) error {
	code, err := generateCode()
	if err != nil {
		return apierrors.ErrInternal
	}

	body := fmt.Sprintf("Your one-time passcode is: %s\n\nIt expires in %s.", code, m.ttl)
	if err := m.sender.Send(ctx, email, otpSubject, body); err != nil {
		return apierrors.ErrNotificationFailed
	}

	pending := &models.PendingAuth{
		Code:         code,
		Flow:         flow,
		Username:     username,
		PasswordHash: passwordHash,
	}
	if err := m.store.Put(ctx, email, pending, m.ttl); err != nil {
		return apierrors.ErrInternal
	}
	return nil
}

// Verify compares the supplied code against the pending entry. On a match
// the entry is consumed (deleted) and its payload returned. On a mismatch
// or when no entry exists the caller gets invalid_otp and any existing
// entry is left untouched for a retry.
func (m *Manager) Verify(ctx context.Context, email, code string) (*models.PendingAuth, error) {
	pending, err := m.store.Get(ctx, email)
	if err != nil {
		if err == ErrNoSession {
			return nil, apierrors.ErrInvalidOTP
		}
		return nil, apierrors.ErrInternal
	}

	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return nil, apierrors.ErrInvalidOTP
	}

	if err := m.store.Delete(ctx, email); err != nil {
		return nil, apierrors.ErrInternal
	}
	return pending, nil
}

// generateCode draws a 6-digit numeric code uniformly from
// [100000, 999999] using crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
