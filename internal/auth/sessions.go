package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"

	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

const (
	// SessionKey holds the JSON-encoded Session inside the scs session.
	SessionKey = "pdflibrary_session"

	// SessionMaxAge is how long a login stays valid, measured from login.
	SessionMaxAge = 24 * time.Hour
)

// Session is the logged-in identity. TS is the login time in epoch
// milliseconds.
type Session struct {
	Username string        `json:"username"`
	Name     string        `json:"name"`
	Role     entities.Role `json:"role"`
	TS       int64         `json:"ts"`
}

func (s *Session) IssuedAt() time.Time {
	return time.UnixMilli(s.TS)
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
	now func() time.Time
}

// NewSessionManager creates a session manager on top of store.
func NewSessionManager(store scs.Store, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = store

	// The cookie may outlive a session but must not expire before it.
	sm.Lifetime = max(cfg.SessionLifetime, SessionMaxAge)

	// Configure cookie security
	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteStrictMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm, now: time.Now}
}

// WithClock replaces the time source. Used in tests.
func (sm *SessionManager) WithClock(now func() time.Time) *SessionManager {
	sm.now = now
	return sm
}

// Start records account as the logged-in identity, replacing any previous
// session. The token is renewed to prevent session fixation.
func (sm *SessionManager) Start(ctx context.Context, account *entities.Account) (*Session, error) {
	if err := sm.RenewToken(ctx); err != nil {
		return nil, err
	}

	sess := &Session{
		Username: account.Username,
		Name:     account.Name,
		Role:     account.Role,
		TS:       sm.now().UnixMilli(),
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	sm.Put(ctx, SessionKey, string(raw))
	return sess, nil
}

// Current returns the active session, or nil. Malformed and expired
// records are removed.
func (sm *SessionManager) Current(ctx context.Context) *Session {
	raw := sm.GetString(ctx, SessionKey)
	if raw == "" {
		return nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.Username == "" || sess.TS == 0 {
		sm.Remove(ctx, SessionKey)
		return nil
	}

	if sm.now().UnixMilli()-sess.TS > SessionMaxAge.Milliseconds() {
		sm.Remove(ctx, SessionKey)
		return nil
	}
	return &sess
}

// End destroys the session unconditionally.
func (sm *SessionManager) End(ctx context.Context) error {
	return sm.Destroy(ctx)
}

// HasPremiumAccess holds for premium and admin sessions.
func (sm *SessionManager) HasPremiumAccess(ctx context.Context) bool {
	sess := sm.Current(ctx)
	return sess != nil && (sess.Role == entities.RolePremium || sess.Role == entities.RoleAdmin)
}

func (sm *SessionManager) IsAdmin(ctx context.Context) bool {
	sess := sm.Current(ctx)
	return sess != nil && sess.Role == entities.RoleAdmin
}

// SessionStore is an scs store plus the function that releases it. Ping is
// set for stores backed by a separate server.
type SessionStore struct {
	scs.Store
	Close func()
	Ping  func(ctx context.Context) error
}

// OpenSessionStore builds the scs store selected by kind. The sqlite store
// keeps its table in the application database.
func OpenSessionStore(ctx context.Context, kind string, sqlDB *sql.DB, redisCfg config.Redis) (*SessionStore, error) {
	switch kind {
	case config.SessionStoreSQLite, "":
		_, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, fmt.Errorf("create sessions table: %w", err)
		}
		store := sqlite3store.New(sqlDB)
		return &SessionStore{Store: store, Close: store.StopCleanup}, nil

	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return &SessionStore{
			Store: goredisstore.New(client),
			Close: func() { _ = client.Close() },
			Ping:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}, nil

	case config.SessionStoreMemory:
		store := memstore.New()
		return &SessionStore{Store: store, Close: store.StopCleanup}, nil
	}

	return nil, fmt.Errorf("unknown session store %q", kind)
}
