package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/repository"
	"github.com/groupcar/groupcar-server/internal/security"
	"github.com/groupcar/groupcar-server/internal/session"
)

type AuthHandler struct {
	users      repository.UserRepository
	sessions   *session.Manager
	validate   *validator.Validate
	csrfHeader string
}

func NewAuthHandler(users repository.UserRepository, sessions *session.Manager, csrfHeader string) *AuthHandler {
	return &AuthHandler{
		users:      users,
		sessions:   sessions,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		csrfHeader: csrfHeader,
	}
}

type signUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanumunicode"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	CSRFToken string `json:"csrf_token"`
	LoggedIn  bool   `json:"logged_in"`
	Username  string `json:"username,omitempty"`
}

// SignUp creates the account and logs the new user in on the same
// session: the pre-session is promoted in place, keeping its secret.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	user := &domain.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.Error(w, r, apperrors.Conflict("username is already taken"))
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}

	if err := h.promote(w, r, user); err != nil {
		response.Error(w, r, err)
		return
	}
	observability.Audit(r, "sign_up", "user_id", user.ID, "username", user.Username)
	response.JSON(w, http.StatusCreated, user)
}

// Login authenticates credentials and promotes the current pre-session.
// The CSRF secret is retained across the transition, so a token fetched
// before login still verifies afterwards and the client needs no page
// reload. A failed login reissues the pre-session token untouched.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	user, err := h.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.rejectLogin(w, r, req.Username)
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	if err := security.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			h.rejectLogin(w, r, req.Username)
			return
		}
		response.Error(w, r, apperrors.Internal(err))
		return
	}

	if err := h.promote(w, r, user); err != nil {
		response.Error(w, r, err)
		return
	}
	observability.RecordAuthLogin("success")
	observability.Audit(r, "login", "user_id", user.ID, "username", user.Username)
	response.JSON(w, http.StatusOK, user)
}

// Logout destroys the session record and clears the cookie. Replaying
// the old cookie afterwards finds no record and is treated as NoSession.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok || !auth.LoggedIn() {
		response.Error(w, r, apperrors.NotLoggedIn())
		return
	}
	if err := h.sessions.End(r.Context(), auth.Record); err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	if issuer, ok := middleware.IssuerFromContext(r.Context()); ok {
		issuer.ClearToken()
	}
	observability.RecordAuthLogout("success")
	observability.Audit(r, "logout")
	response.NoContent(w)
}

// Token is the safe-method bootstrap and silent refresh endpoint: it
// returns a fresh CSRF token for the session's secret in both the
// response header and body, and re-issues the cookie to slide the token
// expiry window.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok || auth.Claims == nil {
		response.Error(w, r, apperrors.InvalidSession("no session resolved for this request"))
		return
	}
	csrfToken, err := security.IssueCSRFToken(auth.Claims.CSRFSecret)
	if err != nil {
		response.Error(w, r, apperrors.Internal(err))
		return
	}
	w.Header().Set(h.csrfHeader, csrfToken)

	if !auth.Fresh {
		issuer, ok := middleware.IssuerFromContext(r.Context())
		if !ok {
			response.Error(w, r, apperrors.InvalidSession("no token issuer on this request"))
			return
		}
		subject := ""
		if auth.LoggedIn() {
			subject = auth.Claims.Username
		}
		if err := issuer.SetToken(auth.Claims, subject); err != nil {
			response.Error(w, r, err)
			return
		}
	}
	response.JSON(w, http.StatusOK, tokenResponse{
		CSRFToken: csrfToken,
		LoggedIn:  auth.LoggedIn(),
		Username:  auth.Claims.Username,
	})
}

func (h *AuthHandler) promote(w http.ResponseWriter, r *http.Request, user *domain.User) error {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok || auth.Claims == nil || auth.Record == nil {
		return apperrors.InvalidSession("no pre-session to promote")
	}
	issuer, ok := middleware.IssuerFromContext(r.Context())
	if !ok {
		return apperrors.InvalidSession("no token issuer on this request")
	}
	claims, err := h.sessions.Promote(r.Context(), auth.Record, auth.Claims, user)
	if err != nil {
		return apperrors.Internal(err)
	}
	return issuer.SetToken(claims, user.Username)
}

func (h *AuthHandler) rejectLogin(w http.ResponseWriter, r *http.Request, username string) {
	observability.RecordAuthLogin("failure")
	observability.Audit(r, "login_rejected", "username", username)
	// Keep the pre-session alive: reissue its token so the client can
	// retry without another bootstrap round trip.
	auth, ok := middleware.AuthFromContext(r.Context())
	if ok && auth.Claims != nil && !auth.LoggedIn() {
		if issuer, issuerOK := middleware.IssuerFromContext(r.Context()); issuerOK {
			_ = issuer.SetToken(auth.Claims, "")
		}
	}
	response.Error(w, r, apperrors.InvalidLogin())
}

func (h *AuthHandler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.BadRequest("request body is not valid json")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequest("request body failed validation")
	}
	return nil
}
