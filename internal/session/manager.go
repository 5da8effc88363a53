package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/security"
)

// State of a client's session as seen by the middleware pipeline.
type State int

const (
	// NoSession: no cookie, or a cookie that failed decoding.
	NoSession State = iota
	// PreSession: CSRF secret minted, no user attached.
	PreSession
	// Authenticated: a user is attached and logged_in is set.
	Authenticated
	// Destroyed: terminal. Logout or timeout; the record is gone.
	Destroyed
)

func (s State) String() string {
	switch s {
	case PreSession:
		return "pre_session"
	case Authenticated:
		return "authenticated"
	case Destroyed:
		return "destroyed"
	default:
		return "no_session"
	}
}

type Timeouts struct {
	// Absolute is the maximum session lifetime from creation.
	Absolute time.Duration
	// Inactivity is the maximum gap since the last request.
	Inactivity time.Duration
}

// Manager owns session lifecycle transitions. All verification state is
// reconstructed from the signed token per request; the manager touches
// only the record's own timestamps, which tolerate last-writer-wins.
type Manager struct {
	store    Store
	timeouts Timeouts
	now      func() time.Time
}

func NewManager(store Store, timeouts Timeouts) *Manager {
	if timeouts.Absolute <= 0 {
		timeouts.Absolute = 24 * time.Hour
	}
	if timeouts.Inactivity <= 0 {
		timeouts.Inactivity = time.Hour
	}
	return &Manager{store: store, timeouts: timeouts, now: time.Now}
}

// Begin mints a fresh pre-session: new record, new CSRF secret, claims
// ready for encoding. This is the only place a secret is ever minted.
func (m *Manager) Begin(ctx context.Context) (*domain.Session, *security.Claims, error) {
	secret, err := security.MintCSRFSecret()
	if err != nil {
		return nil, nil, err
	}
	now := m.now()
	rec := &domain.Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.timeouts.Absolute),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	observability.RecordSessionEvent(ctx, "created", PreSession.String())
	claims := &security.Claims{SessionID: rec.ID, CSRFSecret: secret}
	return rec, claims, nil
}

// Resolve looks up the record behind decoded claims and evaluates both
// timeout invariants. An expired record is destroyed and reported as
// Destroyed; callers decide whether that downgrades to a fresh
// pre-session or surfaces NotLoggedInError.
func (m *Manager) Resolve(ctx context.Context, claims *security.Claims) (*domain.Session, State, error) {
	rec, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, NoSession, nil
		}
		return nil, NoSession, err
	}
	now := m.now()
	if m.Expired(rec, now) {
		_ = m.store.Destroy(ctx, rec.ID)
		observability.RecordSessionEvent(ctx, "expired", stateOf(rec).String())
		return nil, Destroyed, nil
	}
	return rec, stateOf(rec), nil
}

// Expired reports whether either the absolute or the inactivity timeout
// has been exceeded. A session failing either check is terminal.
func (m *Manager) Expired(rec *domain.Session, now time.Time) bool {
	if rec.CreatedAt.Add(m.timeouts.Absolute).Before(now) {
		return true
	}
	if rec.LastActivity.Add(m.timeouts.Inactivity).Before(now) {
		return true
	}
	return false
}

// Touch advances the record's last-activity timestamp.
func (m *Manager) Touch(ctx context.Context, rec *domain.Session) error {
	now := m.now()
	if now.After(rec.LastActivity) {
		rec.LastActivity = now
	}
	return m.store.Save(ctx, rec)
}

// Promote moves a pre-session to authenticated in place: the record
// keeps its id and the claims keep their CSRF secret, so a token issued
// before login still verifies the same secret afterwards. Only the user
// identity and logged_in flag change.
func (m *Manager) Promote(ctx context.Context, rec *domain.Session, claims *security.Claims, user *domain.User) (*security.Claims, error) {
	if rec == nil || claims == nil || claims.CSRFSecret == "" {
		return nil, errors.New("cannot promote without a live pre-session")
	}
	rec.UserID = &user.ID
	rec.LastActivity = m.now()
	if err := m.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	observability.RecordSessionEvent(ctx, "promoted", Authenticated.String())
	return &security.Claims{
		SessionID:  rec.ID,
		CSRFSecret: claims.CSRFSecret,
		UserID:     &user.ID,
		Username:   user.Username,
		LoggedIn:   true,
	}, nil
}

// End destroys the record. The next request starts over as NoSession.
func (m *Manager) End(ctx context.Context, rec *domain.Session) error {
	if rec == nil {
		return nil
	}
	if err := m.store.Destroy(ctx, rec.ID); err != nil {
		return err
	}
	observability.RecordSessionEvent(ctx, "destroyed", Destroyed.String())
	return nil
}

func stateOf(rec *domain.Session) State {
	if rec.LoggedIn() {
		return Authenticated
	}
	return PreSession
}
