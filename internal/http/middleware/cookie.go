package middleware

import (
	"net/http"
	"time"
)

// CookiePolicy controls how the session token cookie is written. The
// cookie is always httpOnly; Secure and SameSite=Strict are switched on
// for production profiles. MaxAge tracks the token TTL so the browser
// drops the cookie around the same time the signature stops verifying.
type CookiePolicy struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (p CookiePolicy) Write(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	})
}

func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.sameSite(),
	})
}

func (p CookiePolicy) sameSite() http.SameSite {
	if p.Secure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
