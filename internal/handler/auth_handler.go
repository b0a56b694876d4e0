package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"

	"github.com/arthive/arthive/internal/middleware"
	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/pkg/response"
	"github.com/arthive/arthive/internal/service"
)

// AuthHandler handles signup, signin, and OTP verification requests.
type AuthHandler struct {
	auth        service.AuthService
	sessions    sessions.Store
	sessionName string
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth service.AuthService, store sessions.Store, sessionName string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		sessions:    store,
		sessionName: sessionName,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Routes returns a chi router with the auth routes.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", h.Signup)
	r.Post("/signin", h.Signin)
	r.Post("/verify-otp", h.VerifyOTP)

	return r
}

// SignupRequest is the HTTP request body for starting a registration.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=40"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	if err := h.auth.SignupStart(r.Context(), req.Username, req.Email, req.Password); err != nil {
		middleware.RecordOTP("register", "send_failed")
		response.Error(w, err)
		return
	}

	middleware.RecordOTP("register", "sent")
	response.OK(w, map[string]string{
		"email": req.Email,
		"next":  "/verify-otp",
	})
}

// SigninRequest is the HTTP request body for starting a login.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signin handles POST /signin.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	if err := h.auth.SigninStart(r.Context(), req.Email, req.Password); err != nil {
		middleware.RecordOTP("login", "send_failed")
		response.Error(w, err)
		return
	}

	middleware.RecordOTP("login", "sent")
	response.OK(w, map[string]string{
		"email": req.Email,
		"next":  "/verify-otp",
	})
}

// VerifyOTPRequest is the HTTP request body for code verification. Flow is
// advisory; the pending entry's stored flow is authoritative.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Flow  string `json:"flow,omitempty"`
}

// VerifyOTP handles POST /verify-otp.
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, validationError(err))
		return
	}

	flow, user, err := h.auth.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		middleware.RecordOTP(req.Flow, "verify_failed")
		response.Error(w, err)
		return
	}

	switch flow {
	case models.FlowRegister:
		middleware.RecordOTP("register", "verified")
		response.Created(w, user, "/signin")

	case models.FlowLogin:
		middleware.RecordOTP("login", "verified")
		if err := h.startSession(w, r, user); err != nil {
			h.logger.Error("failed to start session", slog.String("error", err.Error()))
			response.Error(w, apierrors.ErrInternal)
			return
		}
		response.Redirect(w, "/dashboard")
	}
}

// startSession sets the login cookie after a verified login.
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, err := h.sessions.Get(r, h.sessionName)
	if err != nil {
		// An undecodable stale cookie still yields a fresh session.
		session, _ = h.sessions.New(r, h.sessionName)
	}
	session.Values["user_id"] = user.ID.String()
	session.Values["email"] = user.Email
	return session.Save(r, w)
}

// validationError flattens validator errors into the API error shape.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.ErrBadRequest
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return apierrors.NewValidationErrors(fields)
}
