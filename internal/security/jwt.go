package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubjectAnonymous is the token subject used while no user is logged in.
const SubjectAnonymous = "not-logged-in"

type Claims struct {
	SessionID  string `json:"sid"`
	CSRFSecret string `json:"csrf"`
	UserID     *uint  `json:"uid,omitempty"`
	Username   string `json:"username,omitempty"`
	LoggedIn   bool   `json:"logged_in"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies the session token cookie. It is a pure
// function over its inputs and the process-wide signing key; the key is
// validated once at startup and never changes afterwards.
type TokenCodec struct {
	issuer string
	secret []byte
	ttl    time.Duration
}

var ErrWeakSigningKey = errors.New("jwt signing key must be at least 32 bytes")

func NewTokenCodec(issuer, key string, ttl time.Duration) (*TokenCodec, error) {
	if len(key) < 32 {
		return nil, ErrWeakSigningKey
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenCodec{issuer: issuer, secret: []byte(key), ttl: ttl}, nil
}

func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Encode signs claims with the server key. The subject defaults to the
// anonymous sentinel so pre-session tokens are distinguishable from
// authenticated ones by subject alone. Claims without a session id and
// CSRF secret are unencodable.
func (c *TokenCodec) Encode(claims *Claims, subject string) (string, error) {
	if claims == nil || claims.CSRFSecret == "" || claims.SessionID == "" {
		return "", errors.New("claims must carry a session id and csrf secret")
	}
	if subject == "" {
		subject = SubjectAnonymous
	}
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims, or nil on
// any failure. Malformed or expired tokens are a designed fallback, not
// an error: a stale cookie on a read request must not break read access.
// A token missing its secret claim is treated as malformed even when the
// signature verifies.
func (c *TokenCodec) Decode(raw string) *Claims {
	if raw == "" {
		return nil
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return c.secret, nil
	}, jwt.WithIssuer(c.issuer))
	if err != nil || !tok.Valid {
		return nil
	}
	if claims.CSRFSecret == "" || claims.SessionID == "" {
		return nil
	}
	return claims
}
