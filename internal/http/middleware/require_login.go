package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/repository"
)

// RequireLoggedIn gates routes that need an authenticated identity. The
// claims alone are not trusted: the user is re-fetched by id on every
// request so a deleted account loses access immediately, even while its
// token signature is still valid.
func RequireLoggedIn(users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthFromContext(r.Context())
			if !ok || !auth.LoggedIn() {
				response.Error(w, r, apperrors.NotLoggedIn())
				return
			}
			userID, _ := auth.UserID()
			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					response.Error(w, r, apperrors.NotLoggedIn())
					return
				}
				response.Error(w, r, apperrors.Internal(err))
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
