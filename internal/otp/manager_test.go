package otp

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

var codePattern = regexp.MustCompile(`\d{6}`)

// fakeSender records outgoing mail in memory.
type fakeSender struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	to, subject, body string
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// lastCode extracts the passcode from the most recent email.
func (f *fakeSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	code := codePattern.FindString(f.sent[len(f.sent)-1].body)
	require.Len(t, code, 6)
	return code
}

func TestInitiateAndVerify(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	err := m.Initiate(ctx, "ana@example.com", models.FlowRegister, "ana", "$2a$10$hash")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ana@example.com", sender.sent[0].to)

	pending, err := m.Verify(ctx, "ana@example.com", sender.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, models.FlowRegister, pending.Flow)
	assert.Equal(t, "ana", pending.Username)
	assert.Equal(t, "$2a$10$hash", pending.PasswordHash)
}

func TestVerifyConsumesEntry(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Initiate(ctx, "ana@example.com", models.FlowLogin, "", ""))
	code := sender.lastCode(t)

	_, err := m.Verify(ctx, "ana@example.com", code)
	require.NoError(t, err)

	// The same code cannot be redeemed twice
	_, err = m.Verify(ctx, "ana@example.com", code)
	assert.Equal(t, apierrors.ErrInvalidOTP, err)
}

func TestVerifyWrongCodeLeavesEntry(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Initiate(ctx, "ana@example.com", models.FlowLogin, "", ""))
	code := sender.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err := m.Verify(ctx, "ana@example.com", wrong)
	assert.Equal(t, apierrors.ErrInvalidOTP, err)

	// A retry with the right code still works
	_, err = m.Verify(ctx, "ana@example.com", code)
	assert.NoError(t, err)
}

func TestVerifyUnknownEmail(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeSender{}, 5*time.Minute)

	_, err := m.Verify(context.Background(), "nobody@example.com", "123456")
	assert.Equal(t, apierrors.ErrInvalidOTP, err)
}

func TestInitiateOverwritesPriorEntry(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Initiate(ctx, "ana@example.com", models.FlowLogin, "", ""))
	first := sender.lastCode(t)

	require.NoError(t, m.Initiate(ctx, "ana@example.com", models.FlowLogin, "", ""))
	second := sender.lastCode(t)

	if first != second {
		_, err := m.Verify(ctx, "ana@example.com", first)
		assert.Equal(t, apierrors.ErrInvalidOTP, err, "stale code must stop verifying")
	}

	_, err := m.Verify(ctx, "ana@example.com", second)
	assert.NoError(t, err)
}

func TestInitiateSendFailureLeavesNoEntry(t *testing.T) {
	store := NewMemoryStore()
	sender := &fakeSender{err: errors.New("smtp down")}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	err := m.Initiate(ctx, "ana@example.com", models.FlowRegister, "ana", "hash")
	assert.Equal(t, apierrors.ErrNotificationFailed, err)

	_, err = store.Get(ctx, "ana@example.com")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestEntryExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	sender := &fakeSender{}
	m := NewManager(store, sender, 5*time.Minute)
	ctx := context.Background()

	require.NoError(t, m.Initiate(ctx, "ana@example.com", models.FlowLogin, "", ""))
	code := sender.lastCode(t)

	now = now.Add(5*time.Minute + time.Second)

	_, err := m.Verify(ctx, "ana@example.com", code)
	assert.Equal(t, apierrors.ErrInvalidOTP, err)
}

func TestGeneratedCodesAreSixDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.Regexp(t, `^[1-9]\d{5}$`, code)
	}
}
