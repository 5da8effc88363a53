package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/http/handler"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/notification"
	"github.com/groupcar/groupcar-server/internal/repository"
	"github.com/groupcar/groupcar-server/internal/security"
	"github.com/groupcar/groupcar-server/internal/session"
)

func newRouterForTest(t *testing.T) http.Handler {
	t.Helper()
	codec, err := security.NewTokenCodec("groupcar-test", "abcdefghijklmnopqrstuvwxyz123456", 15*time.Minute)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	sessions := session.NewManager(session.NewMemoryStore(), session.Timeouts{})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := notification.NewHub(log)
	cookie := middleware.CookiePolicy{Name: "groupcar_session", MaxAge: 15 * time.Minute}
	pipeline := middleware.NewSessionPipeline(codec, sessions, cookie, "XSRF-TOKEN", nil, log)

	// No database behind these: the routes under test never reach a
	// repository.
	return New(Dependencies{
		AuthHandler:         handler.NewAuthHandler(nil, sessions, "XSRF-TOKEN"),
		UserHandler:         handler.NewUserHandler(nil),
		GroupHandler:        handler.NewGroupHandler(nil, nil, hub),
		CarHandler:          handler.NewCarHandler(nil, nil),
		NotificationHandler: handler.NewNotificationHandler(hub, log),
		SessionPipeline:     pipeline,
		UserRepository:      deniedUserRepository{},
		LoginThrottle:       middleware.NewLoginThrottle(1000),
	})
}

// deniedUserRepository never finds anyone, which makes every
// login-gated route answer NotLoggedInError.
type deniedUserRepository struct{}

func (deniedUserRepository) FindByID(context.Context, uint) (*domain.User, error) {
	return nil, repository.ErrUserNotFound
}

func (deniedUserRepository) FindByUsername(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrUserNotFound
}

func (deniedUserRepository) Create(context.Context, *domain.User) error { return nil }
func (deniedUserRepository) Delete(context.Context, uint) error         { return nil }

func TestHealthLiveBypassesSessionPipeline(t *testing.T) {
	h := newRouterForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == "groupcar_session" {
			t.Fatal("health probe must not mint a session")
		}
	}
}

func TestSecurityHeadersOnEveryResponse(t *testing.T) {
	h := newRouterForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for header, value := range want {
		if got := rr.Header().Get(header); got != value {
			t.Fatalf("expected %s=%q, got %q", header, value, got)
		}
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	h := newRouterForTest(t)
	for _, path := range []string{"/api/user", "/api/user/invites", "/api/group", "/api/notifications/ws"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without login, got %d", path, rr.Code)
		}
	}
}

func TestAPIRoutesMintSessionOnFirstContact(t *testing.T) {
	h := newRouterForTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/token", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == "groupcar_session" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a session cookie on first contact")
	}
	if rr.Header().Get("XSRF-TOKEN") == "" {
		t.Fatal("expected a csrf token header")
	}
}
