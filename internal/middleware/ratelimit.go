package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"go-bookshelf/pkg/apierror"
)

const generalRoute = "general"

type rateLimitObserver interface {
	ObserveRateLimited(route string)
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware is a per-client token bucket for the book API. The
// stricter fixed-window accounting of login and registration lives in the
// ratelimit package.
type RateLimitMiddleware struct {
	rpm      int
	disabled bool
	clientIP func(*http.Request) string
	observer rateLimitObserver

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewRateLimitMiddleware(rpm int, disabled bool, clientIP func(*http.Request) string, observer rateLimitObserver) *RateLimitMiddleware {
	if rpm <= 0 {
		rpm = 300
	}
	if clientIP == nil {
		clientIP = ClientIP(false)
	}

	return &RateLimitMiddleware{
		rpm:      rpm,
		disabled: disabled,
		clientIP: clientIP,
		observer: observer,
		clients:  map[string]*clientLimiter{},
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		limiter := m.getLimiter(m.clientIP(r))
		if !limiter.Allow() {
			if m.observer != nil {
				m.observer.ObserveRateLimited(generalRoute)
			}
			retryAfter := time.Duration(float64(time.Second) / float64(limiter.Limit()))
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(m.rpm))
			h.Set("X-RateLimit-Remaining", "0")
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))
			writeAPIError(w, apierror.RateLimited("Too many requests", retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) getLimiter(clientIP string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, exists := m.clients[clientIP]; exists {
		existing.lastSeen = now
		return existing.limiter
	}

	created := &clientLimiter{
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.rpm),
		lastSeen: now,
	}
	m.clients[clientIP] = created
	m.gcLocked(now)

	return created.limiter
}

func (m *RateLimitMiddleware) gcLocked(now time.Time) {
	if len(m.clients) < 1000 {
		return
	}

	cutoff := now.Add(-10 * time.Minute)
	for ip, limiter := range m.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

// ClientIP returns the function deriving a client key from a request.
// Forwarding headers are honored only when trustProxy is set; otherwise a
// client could pick its own key and dodge every limiter.
func ClientIP(trustProxy bool) func(*http.Request) string {
	return func(r *http.Request) string {
		if trustProxy {
			forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
			if forwarded != "" {
				first, _, _ := strings.Cut(forwarded, ",")
				if first = strings.TrimSpace(first); first != "" {
					return first
				}
			}

			realIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
			if realIP != "" {
				return realIP
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}

		if strings.TrimSpace(r.RemoteAddr) == "" {
			return "unknown"
		}

		return r.RemoteAddr
	}
}
