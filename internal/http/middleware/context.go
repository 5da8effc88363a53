package middleware

import (
	"context"

	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/security"
)

type contextKey string

const (
	authContextKey   contextKey = "auth"
	issuerContextKey contextKey = "token_issuer"
	userContextKey   contextKey = "current_user"
)

// AuthContext is the immutable per-request identity resolved by the
// session pipeline. Handlers read it from the request context; nothing
// downstream mutates it.
type AuthContext struct {
	Claims *security.Claims
	Record *domain.Session
	// Fresh marks a pre-session minted during this request; its cookie
	// is already on the response, so handlers skip re-issuing one.
	Fresh bool
}

func (a *AuthContext) LoggedIn() bool {
	return a != nil && a.Claims != nil && a.Claims.LoggedIn && a.Claims.UserID != nil
}

func (a *AuthContext) UserID() (uint, bool) {
	if !a.LoggedIn() {
		return 0, false
	}
	return *a.Claims.UserID, true
}

func AuthFromContext(ctx context.Context) (*AuthContext, bool) {
	a, ok := ctx.Value(authContextKey).(*AuthContext)
	return a, ok
}

func IssuerFromContext(ctx context.Context) (*TokenIssuer, bool) {
	i, ok := ctx.Value(issuerContextKey).(*TokenIssuer)
	return i, ok
}

// UserFromContext returns the re-validated user set by RequireLoggedIn.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userContextKey).(*domain.User)
	return u, ok
}
