package middleware

import (
	"net/http"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/security"
)

// TokenIssuer is the only channel through which claims change after the
// pipeline has run. Login, sign-up and token-refresh handlers use it to
// mint the next cookie; the pipeline itself never mutates claims on
// behalf of a handler.
type TokenIssuer struct {
	w      http.ResponseWriter
	codec  *security.TokenCodec
	cookie CookiePolicy
}

func (i *TokenIssuer) SetToken(claims *security.Claims, subject string) error {
	token, err := i.codec.Encode(claims, subject)
	if err != nil {
		return apperrors.Encoding(err)
	}
	i.cookie.Write(i.w, token)
	return nil
}

// ClearToken expires the cookie so the next request starts as NoSession.
func (i *TokenIssuer) ClearToken() {
	i.cookie.Clear(i.w)
}
