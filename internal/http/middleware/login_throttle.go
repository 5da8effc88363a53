package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/groupcar/groupcar-server/internal/apperrors"
	"github.com/groupcar/groupcar-server/internal/http/response"
	"github.com/groupcar/groupcar-server/internal/observability"
)

// LoginThrottle rate-limits credential-guessing per client IP. Entries
// idle longer than the eviction window are dropped on the next sweep.
type LoginThrottle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	sweepAt  time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewLoginThrottle(perMinute int) *LoginThrottle {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &LoginThrottle{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		sweepAt:  time.Now().Add(time.Minute),
	}
}

func (t *LoginThrottle) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.allow(clientIP(r)) {
				observability.Audit(r, "login_throttled")
				response.Error(w, r, apperrors.TooManyRequests("too many login attempts, slow down"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (t *LoginThrottle) allow(ip string) bool {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if now.After(t.sweepAt) {
		for k, v := range t.visitors {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(t.visitors, k)
			}
		}
		t.sweepAt = now.Add(time.Minute)
	}
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
