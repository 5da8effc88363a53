package domain

import "time"

// Session is the server-side record backing a token cookie. UserID is nil
// for a pre-session that has not been promoted by a login yet.
//
// A record is valid only while both timeout invariants hold:
// CreatedAt+absolute >= now and LastActivity+inactivity >= now. A record
// violating either is terminal and must never be reused.
type Session struct {
	ID           string    `json:"id"`
	UserID       *uint     `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Session) LoggedIn() bool { return s != nil && s.UserID != nil }
