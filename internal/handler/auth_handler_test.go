package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

// fakeAuthService scripts AuthService responses for handler tests.
type fakeAuthService struct {
	signupErr  error
	signinErr  error
	verifyFlow models.AuthFlow
	verifyUser *models.User
	verifyErr  error

	signupCalls int
	signinCalls int
}

func (f *fakeAuthService) SignupStart(ctx context.Context, username, email, password string) error {
	f.signupCalls++
	return f.signupErr
}

func (f *fakeAuthService) SigninStart(ctx context.Context, email, password string) error {
	f.signinCalls++
	return f.signinErr
}

func (f *fakeAuthService) VerifyOTP(ctx context.Context, email, code string) (models.AuthFlow, *models.User, error) {
	if f.verifyErr != nil {
		return "", nil, f.verifyErr
	}
	return f.verifyFlow, f.verifyUser, nil
}

func (f *fakeAuthService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	return f.verifyUser, nil
}

func newAuthHandler(svc *fakeAuthService) *AuthHandler {
	store := sessions.NewCookieStore([]byte("test-session-secret"))
	return NewAuthHandler(svc, store, "arthive_session", slog.Default())
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSignupStartsVerification(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/signup", `{"username":"ana","email":"ana@example.com","password":"hunter22"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.signupCalls)
	assert.Contains(t, rec.Body.String(), "/verify-otp")
}

func TestSignupValidation(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthHandler(svc).Routes()

	tests := []struct {
		name string
		body string
	}{
		{"bad email", `{"username":"ana","email":"not-an-email","password":"hunter22"}`},
		{"short password", `{"username":"ana","email":"ana@example.com","password":"pw"}`},
		{"missing username", `{"email":"ana@example.com","password":"hunter22"}`},
		{"malformed json", `{"username":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// Validation failures never reach the service
	assert.Zero(t, svc.signupCalls)
}

func TestSignupConflict(t *testing.T) {
	svc := &fakeAuthService{signupErr: apierrors.NewConflictError("An account with this email already exists")}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/signup", `{"username":"ana","email":"ana@example.com","password":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSigninStartsVerification(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/signin", `{"email":"ana@example.com","password":"hunter22"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.signinCalls)
}

func TestSigninBadCredentials(t *testing.T) {
	svc := &fakeAuthService{signinErr: apierrors.ErrInvalidCredentials}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/signin", `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyRegisterRedirectsToSignin(t *testing.T) {
	svc := &fakeAuthService{
		verifyFlow: models.FlowRegister,
		verifyUser: &models.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", Verified: true},
	}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/verify-otp", `{"email":"ana@example.com","code":"123456"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))

	// Registration verification does not log the user in
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestVerifyLoginSetsSessionCookie(t *testing.T) {
	svc := &fakeAuthService{
		verifyFlow: models.FlowLogin,
		verifyUser: &models.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", Verified: true},
	}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/verify-otp", `{"email":"ana@example.com","code":"123456"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "arthive_session=")
	assert.Contains(t, rec.Body.String(), `"redirect":"/dashboard"`)
}

func TestVerifyInvalidCode(t *testing.T) {
	svc := &fakeAuthService{verifyErr: apierrors.ErrInvalidOTP}
	router := newAuthHandler(svc).Routes()

	rec := postJSON(t, router, "/verify-otp", `{"email":"ana@example.com","code":"999999"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_otp")
}

func TestVerifyValidation(t *testing.T) {
	svc := &fakeAuthService{}
	router := newAuthHandler(svc).Routes()

	// Codes are exactly six digits
	rec := postJSON(t, router, "/verify-otp", `{"email":"ana@example.com","code":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/verify-otp", `{"email":"ana@example.com","code":"abcdef"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
