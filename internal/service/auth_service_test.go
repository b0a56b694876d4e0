package service

import (
	"context"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arthive/arthive/internal/models"
	"github.com/arthive/arthive/internal/otp"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

var otpCodePattern = regexp.MustCompile(`\d{6}`)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	byEmail map[string]*models.User
	creates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	if _, exists := f.byEmail[user.Email]; exists {
		return apierrors.NewConflictError("A user with this email already exists")
	}
	f.creates++
	copied := *user
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

// fakeMailSender records outgoing mail.
type fakeMailSender struct {
	bodies []string
}

func (f *fakeMailSender) Send(ctx context.Context, to, subject, body string) error {
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeMailSender) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.bodies)
	code := otpCodePattern.FindString(f.bodies[len(f.bodies)-1])
	require.Len(t, code, 6)
	return code
}

func newAuthFixture() (AuthService, *fakeUserRepo, *fakeMailSender) {
	repo := newFakeUserRepo()
	sender := &fakeMailSender{}
	manager := otp.NewManager(otp.NewMemoryStore(), sender, 5*time.Minute)
	svc := NewAuthService(repo, manager, bcrypt.MinCost, slog.Default())
	return svc, repo, sender
}

func TestSignupFlowCreatesVerifiedAccount(t *testing.T) {
	svc, repo, sender := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, svc.SignupStart(ctx, "ana", "ana@example.com", "hunter22"))

	// No account exists until the code is verified
	assert.Zero(t, repo.creates)

	flow, user, err := svc.VerifyOTP(ctx, "ana@example.com", sender.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, models.FlowRegister, flow)
	require.NotNil(t, user)
	assert.Equal(t, "ana", user.Username)
	assert.True(t, user.Verified)
	assert.Equal(t, 1, repo.creates)

	// Stored hash verifies the password and is not the plaintext
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
}

func TestSignupRejectsExistingEmail(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	repo.byEmail["ana@example.com"] = &models.User{Email: "ana@example.com", PasswordHash: string(hash)}

	err := svc.SignupStart(ctx, "ana2", "ana@example.com", "otherpw")
	require.Error(t, err)
	assert.Equal(t, "conflict", apierrors.AsAPIError(err).Code)
}

func TestSigninFlow(t *testing.T) {
	svc, repo, sender := newAuthFixture()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	repo.byEmail["ana@example.com"] = &models.User{
		Username:     "ana",
		Email:        "ana@example.com",
		PasswordHash: string(hash),
		Verified:     true,
	}

	require.NoError(t, svc.SigninStart(ctx, "ana@example.com", "hunter22"))

	flow, user, err := svc.VerifyOTP(ctx, "ana@example.com", sender.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, models.FlowLogin, flow)
	require.NotNil(t, user)
	assert.Equal(t, "ana", user.Username)

	// Login never creates a second account
	assert.Zero(t, repo.creates)
}

func TestSigninWrongPassword(t *testing.T) {
	svc, repo, sender := newAuthFixture()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	repo.byEmail["ana@example.com"] = &models.User{Email: "ana@example.com", PasswordHash: string(hash)}

	err := svc.SigninStart(ctx, "ana@example.com", "wrong")
	assert.Equal(t, apierrors.ErrInvalidCredentials, err)

	// No code goes out on a failed credential check
	assert.Empty(t, sender.bodies)
}

func TestSigninUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()

	err := svc.SigninStart(context.Background(), "nobody@example.com", "pw")
	assert.Equal(t, apierrors.ErrInvalidCredentials, err)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	svc, _, sender := newAuthFixture()
	ctx := context.Background()

	require.NoError(t, svc.SignupStart(ctx, "ana", "ana@example.com", "hunter22"))
	code := sender.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, _, err := svc.VerifyOTP(ctx, "ana@example.com", wrong)
	assert.Equal(t, apierrors.ErrInvalidOTP, err)
}

func TestVerifyCredentials(t *testing.T) {
	svc, repo, _ := newAuthFixture()
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	repo.byEmail["ana@example.com"] = &models.User{Email: "ana@example.com", PasswordHash: string(hash)}

	user, err := svc.VerifyCredentials(ctx, "ana@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = svc.VerifyCredentials(ctx, "ana@example.com", "nope")
	assert.Equal(t, apierrors.ErrInvalidCredentials, err)
}
