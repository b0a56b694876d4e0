package service

import (
	"context"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/arthive/arthive/internal/models"
	"github.com/arthive/arthive/internal/otp"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/repository"
)

// AuthService defines the OTP-gated signup and signin flows.
type AuthService interface {
	// SignupStart hashes the password, parks the registration in the OTP
	// session store, and emails a code. No account exists yet.
	SignupStart(ctx context.Context, username, email, password string) error

	// SigninStart checks the credentials and emails a login code.
	SigninStart(ctx context.Context, email, password string) error

	// VerifyOTP consumes a pending entry. Registration flows create the
	// account; login flows just confirm. The returned flow tells the caller
	// which one happened.
	VerifyOTP(ctx context.Context, email, code string) (models.AuthFlow, *models.User, error)

	// VerifyCredentials reports whether a plaintext password matches the
	// stored hash for the account.
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
}

type authService struct {
	users      repository.UserRepository
	otp        *otp.Manager
	bcryptCost int
	logger     *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users repository.UserRepository, manager *otp.Manager, bcryptCost int, logger *slog.Logger) AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &authService{users: users, otp: manager, bcryptCost: bcryptCost, logger: logger}
}

// SignupStart begins a registration. The password is hashed immediately so
// only the hash ever enters the session store; the plaintext is dropped
// here.
func (s *authService) SignupStart(ctx context.Context, username, email, password string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("signup lookup failed", slog.String("error", err.Error()))
		return apierrors.ErrInternal
	}
	if existing != nil {
		return apierrors.NewConflictError("An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return apierrors.ErrInternal
	}

	return s.otp.Initiate(ctx, email, models.FlowRegister, username, string(hash))
}

// SigninStart verifies credentials and, on a match, dispatches a login
// code. Unknown emails and wrong passwords are indistinguishable to the
// caller.
func (s *authService) SigninStart(ctx context.Context, email, password string) error {
	if _, err := s.VerifyCredentials(ctx, email, password); err != nil {
		return err
	}
	return s.otp.Initiate(ctx, email, models.FlowLogin, "", "")
}

// VerifyCredentials compares the password against the stored bcrypt hash.
func (s *authService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("credential lookup failed", slog.String("error", err.Error()))
		return nil, apierrors.ErrInternal
	}
	if user == nil {
		return nil, apierrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apierrors.ErrInvalidCredentials
	}
	return user, nil
}

// VerifyOTP consumes the pending entry and completes its flow.
func (s *authService) VerifyOTP(ctx context.Context, email, code string) (models.AuthFlow, *models.User, error) {
	pending, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return "", nil, err
	}

	switch pending.Flow {
	case models.FlowRegister:
		user := &models.User{
			Username:     pending.Username,
			Email:        email,
			PasswordHash: pending.PasswordHash,
			Verified:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if apierrors.IsAPIError(err) {
				return "", nil, err
			}
			s.logger.Error("account create failed", slog.String("error", err.Error()))
			return "", nil, apierrors.ErrInternal
		}
		return models.FlowRegister, user, nil

	case models.FlowLogin:
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			s.logger.Error("login lookup failed", slog.String("error", err.Error()))
			return "", nil, apierrors.ErrInternal
		}
		if user == nil {
			return "", nil, apierrors.ErrInvalidCredentials
		}
		return models.FlowLogin, user, nil

	default:
		return "", nil, apierrors.ErrInternal
	}
}
