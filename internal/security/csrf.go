package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Double-submit CSRF scheme. The secret lives in the signed token cookie
// for the lifetime of one session; presentable tokens are derived from
// it with a fresh salt per issuance, so two tokens for the same secret
// never look alike. Verification recomputes the MAC from the salt and
// the session's current secret; tokens are never compared to each other.

const (
	csrfSecretLength = 32
	csrfSaltLength   = 8
)

func MintCSRFSecret() (string, error) {
	buf := make([]byte, csrfSecretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func IssueCSRFToken(secret string) (string, error) {
	salt := make([]byte, csrfSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(salt) + "." + csrfMAC(secret, salt), nil
}

// VerifyCSRFToken reports whether token was derived from secret.
func VerifyCSRFToken(secret, token string) bool {
	if secret == "" || token == "" {
		return false
	}
	saltPart, macPart, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	salt, err := base64.RawURLEncoding.DecodeString(saltPart)
	if err != nil || len(salt) != csrfSaltLength {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(csrfMAC(secret, salt)), []byte(macPart)) == 1
}

func csrfMAC(secret string, salt []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(salt)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
