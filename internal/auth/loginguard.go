package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/pdflibrary/internal/config"
)

// ErrTooManyAttempts is returned by Login while a client is locked out.
var ErrTooManyAttempts = errors.New("too many failed login attempts")

// LockoutError reports how long a locked-out client has to wait.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrTooManyAttempts, e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Unwrap() error { return ErrTooManyAttempts }

// LoginGuard counts wrong passwords per client address and account.
// MaxLoginAttempts ErrInvalidCredentials results within RateLimitWindow lock
// the pair out for LockoutDuration. A successful login forgets the pair.
// Other outcomes (pending accounts, store failures) do not count.
//
// A nil *LoginGuard lets every attempt through.
type LoginGuard struct {
	maxFailures int
	window      time.Duration
	lockout     time.Duration
	now         func() time.Time

	mu      sync.Mutex
	strikes map[guardKey]*strikes
	sweptAt time.Time
}

type guardKey struct {
	ip       string
	username string
}

type strikes struct {
	failures    int
	since       time.Time
	lockedUntil time.Time
}

func (s *strikes) stale(now time.Time, window time.Duration) bool {
	return now.Sub(s.since) > window && !now.Before(s.lockedUntil)
}

// NewLoginGuard returns nil when cfg.MaxLoginAttempts is not positive.
func NewLoginGuard(cfg config.Auth) *LoginGuard {
	if cfg.MaxLoginAttempts <= 0 {
		return nil
	}
	g := &LoginGuard{
		maxFailures: cfg.MaxLoginAttempts,
		window:      cfg.RateLimitWindow,
		lockout:     cfg.LockoutDuration,
		now:         time.Now,
		strikes:     make(map[guardKey]*strikes),
	}
	if g.window <= 0 {
		g.window = 15 * time.Minute
	}
	if g.lockout <= 0 {
		g.lockout = 30 * time.Minute
	}
	return g
}

// Check returns a *LockoutError while ip is locked out of username.
// username must already be normalized.
func (g *LoginGuard) Check(ip, username string) error {
	if g == nil {
		return nil
	}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.strikes[guardKey{ip, username}]
	if !ok || !now.Before(s.lockedUntil) {
		return nil
	}
	return &LockoutError{RetryAfter: s.lockedUntil.Sub(now)}
}

// Observe records the outcome of a login attempt that passed Check. It
// reports whether this attempt started a lockout.
func (g *LoginGuard) Observe(ip, username string, loginErr error) bool {
	if g == nil {
		return false
	}
	key := guardKey{ip, username}
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweep(now)

	switch {
	case loginErr == nil:
		delete(g.strikes, key)
		return false
	case !errors.Is(loginErr, ErrInvalidCredentials):
		return false
	}

	s, ok := g.strikes[key]
	if !ok || now.Sub(s.since) > g.window {
		s = &strikes{since: now}
		g.strikes[key] = s
	}
	s.failures++
	if s.failures < g.maxFailures {
		return false
	}
	s.failures = 0
	s.since = now
	s.lockedUntil = now.Add(g.lockout)
	return true
}

// sweep drops expired entries at most once per window. Caller holds mu.
func (g *LoginGuard) sweep(now time.Time) {
	if now.Sub(g.sweptAt) < g.window {
		return
	}
	g.sweptAt = now
	for key, s := range g.strikes {
		if s.stale(now, g.window) {
			delete(g.strikes, key)
		}
	}
}
