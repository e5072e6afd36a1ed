// Package ratelimit implements the fixed-window attempt counter guarding the
// registration and login routes.
package ratelimit

import (
	"sync"
	"time"

	"go-bookshelf/pkg/apierror"
)

// Route categories counted independently for the same client.
const (
	RouteLogin    = "login"
	RouteRegister = "register"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute

	// sweep expired entries only once the table grows past this size
	gcThreshold = 1000
)

type Options struct {
	MaxAttempts int
	Window      time.Duration
	Disabled    bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Decision describes the window state after an attempt. A zero Limit means no
// limit is in force.
type Decision struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type entryKey struct {
	client string
	route  string
}

type entry struct {
	count       int
	windowStart time.Time
}

type Limiter struct {
	maxAttempts int
	window      time.Duration
	disabled    bool
	now         func() time.Time

	mu      sync.Mutex
	entries map[entryKey]*entry
}

func New(opts Options) *Limiter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Limiter{
		maxAttempts: opts.MaxAttempts,
		window:      opts.Window,
		disabled:    opts.Disabled,
		now:         opts.Now,
		entries:     map[entryKey]*entry{},
	}
}

func (l *Limiter) Disabled() bool {
	return l.disabled
}

func (l *Limiter) MaxAttempts() int {
	return l.maxAttempts
}

// Check counts one attempt by clientKey against route. Every call inside a
// window is counted, including rejected ones; the attempt that takes the count
// past MaxAttempts and all later ones fail with a RATE_LIMITED *apierror.APIError
// whose RetryAfter is the time left in the window.
func (l *Limiter) Check(clientKey string, route string) (Decision, error) {
	if l.disabled {
		return Decision{}, nil
	}

	now := l.now()
	key := entryKey{client: clientKey, route: route}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.entries[key]
	if !exists || !now.Before(current.windowStart.Add(l.window)) {
		current = &entry{count: 1, windowStart: now}
		l.entries[key] = current
		l.gcLocked(now)

		return Decision{
			Limit:     l.maxAttempts,
			Remaining: l.maxAttempts - 1,
			ResetAt:   now.Add(l.window),
		}, nil
	}

	current.count++
	resetAt := current.windowStart.Add(l.window)

	if current.count > l.maxAttempts {
		return Decision{Limit: l.maxAttempts, Remaining: 0, ResetAt: resetAt},
			apierror.RateLimited("Too many "+route+" attempts, please try again later", resetAt.Sub(now))
	}

	return Decision{
		Limit:     l.maxAttempts,
		Remaining: l.maxAttempts - current.count,
		ResetAt:   resetAt,
	}, nil
}

// Reset forgets every counter for clientKey.
func (l *Limiter) Reset(clientKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.entries {
		if key.client == clientKey {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of tracked windows, expired or not.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

func (l *Limiter) gcLocked(now time.Time) {
	if len(l.entries) < gcThreshold {
		return
	}

	for key, e := range l.entries {
		if !now.Before(e.windowStart.Add(l.window)) {
			delete(l.entries, key)
		}
	}
}
