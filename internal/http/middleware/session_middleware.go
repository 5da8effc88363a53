package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/security"
	"github.com/groupcar/groupcar-server/internal/session"
)

// DefaultUnsafeMethods are the state-changing methods that require a
// pre-established session and a valid CSRF header.
var DefaultUnsafeMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// SessionPipeline resolves or mints a session for every request.
//
// Safe methods never fail on a bad cookie: a malformed or expired token
// silently downgrades to a fresh pre-session, so stale cookies and
// client clock skew cannot break read traffic. Unsafe methods require a
// decodable token whose live session record verifies the CSRF header,
// so a client must have completed one safe-method round trip before it
// may mutate anything.
type SessionPipeline struct {
	codec      *security.TokenCodec
	sessions   *session.Manager
	cookie     CookiePolicy
	csrfHeader string
	unsafe     map[string]struct{}
	logger     *slog.Logger
}

func NewSessionPipeline(codec *security.TokenCodec, sessions *session.Manager, cookie CookiePolicy, csrfHeader string, unsafeMethods []string, logger *slog.Logger) *SessionPipeline {
	if csrfHeader == "" {
		csrfHeader = "XSRF-TOKEN"
	}
	if len(unsafeMethods) == 0 {
		unsafeMethods = DefaultUnsafeMethods
	}
	unsafe := make(map[string]struct{}, len(unsafeMethods))
	for _, m := range unsafeMethods {
		unsafe[m] = struct{}{}
	}
	return &SessionPipeline{
		codec:      codec,
		sessions:   sessions,
		cookie:     cookie,
		csrfHeader: csrfHeader,
		unsafe:     unsafe,
		logger:     logger,
	}
}

func (p *SessionPipeline) CSRFHeader() string { return p.csrfHeader }

func (p *SessionPipeline) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		raw := security.GetCookie(r, p.cookie.Name)
		claims := p.codec.Decode(raw)
		switch {
		case claims != nil:
			observability.RecordTokenValidation(ctx, "valid")
		case raw != "":
			observability.RecordTokenValidation(ctx, "invalid")
		default:
			observability.RecordTokenValidation(ctx, "missing")
		}

		auth := &AuthContext{}
		if claims != nil {
			rec, state, err := p.sessions.Resolve(ctx, claims)
			if err != nil {
				response.Error(w, r, apperrors.Internal(err))
				return
			}
			if rec == nil {
				// Missing or timed-out record: the token is
				// cryptographically fine but the session is
				// terminal. Treat as NoSession.
				if state == session.Destroyed {
					observability.Audit(r, "session_expired")
				}
				claims = nil
			} else {
				auth.Claims = claims
				auth.Record = rec
			}
		}

		_, isUnsafe := p.unsafe[r.Method]

		if claims == nil {
			if isUnsafe {
				response.Error(w, r, apperrors.Unauthorized("a session is required for state-changing requests"))
				return
			}
			rec, fresh, err := p.sessions.Begin(ctx)
			if err != nil {
				response.Error(w, r, apperrors.Internal(err))
				return
			}
			token, err := p.codec.Encode(fresh, "")
			if err != nil {
				response.Error(w, r, apperrors.Encoding(err))
				return
			}
			p.cookie.Write(w, token)
			auth.Claims = fresh
			auth.Record = rec
			auth.Fresh = true
		} else {
			if isUnsafe {
				header := r.Header.Get(p.csrfHeader)
				if header == "" {
					observability.RecordCSRFValidation(ctx, "missing")
					observability.Audit(r, "csrf_header_missing")
					response.Error(w, r, apperrors.Unauthorized("missing csrf token header"))
					return
				}
				if !security.VerifyCSRFToken(claims.CSRFSecret, header) {
					observability.RecordCSRFValidation(ctx, "invalid")
					observability.Audit(r, "csrf_token_rejected")
					response.Error(w, r, apperrors.InvalidCsrfToken())
					return
				}
				observability.RecordCSRFValidation(ctx, "valid")
			}
			if err := p.sessions.Touch(ctx, auth.Record); err != nil {
				// Activity timestamps tolerate loss; the request
				// itself must not fail on a touch error.
				p.logger.WarnContext(ctx, "session touch failed", "session_id", auth.Record.ID, "error", err)
			}
		}

		issuer := &TokenIssuer{w: w, codec: p.codec, cookie: p.cookie}
		ctx = context.WithValue(ctx, authContextKey, auth)
		ctx = context.WithValue(ctx, issuerContextKey, issuer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
