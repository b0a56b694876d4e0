package middleware

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"

	apierrors "github.com/arthive/arthive/internal/pkg/errors"
	"github.com/arthive/arthive/internal/pkg/response"
)

// RequireSession returns a middleware that rejects requests without a valid
// login session. User ID and email are added to the request context.
func RequireSession(store sessions.Store, sessionName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil || session.IsNew {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			userID, ok := session.Values["user_id"].(string)
			if !ok || userID == "" {
				response.Error(w, apierrors.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			if email, ok := session.Values["email"].(string); ok {
				ctx = context.WithValue(ctx, UserEmailKey, email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession returns a middleware that loads the login session when
// present but never rejects the request.
func OptionalSession(store sessions.Store, sessionName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil || session.IsNew {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if userID, ok := session.Values["user_id"].(string); ok && userID != "" {
				ctx = context.WithValue(ctx, UserIDKey, userID)
			}
			if email, ok := session.Values["email"].(string); ok {
				ctx = context.WithValue(ctx, UserEmailKey, email)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
