package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/database"
	dbaccounts "github.com/mrlokans/pdflibrary/internal/database/accounts"
	dbaudit "github.com/mrlokans/pdflibrary/internal/database/audit"
	"github.com/mrlokans/pdflibrary/internal/database/documents"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testBcryptCost = 4

var testDocuments = []entities.Document{
	{ID: "go-basics", Title: "Go Basics", Description: "Intro to Go", Category: "Programming", Pages: 40, Position: 0},
	{ID: "sql-notes", Title: "SQL Notes", Description: "Joins and indexes", Category: "Databases", Pages: 25, Position: 1},
	{ID: "calculus", Title: "Calculus I", Description: "Limits and derivatives", Category: "Math", Pages: 120, Position: 2},
	{ID: "go-advanced", Title: "Advanced Go", Description: "Concurrency patterns", Category: "Programming", Pages: 90, Premium: true, Position: 0},
	{ID: "linear-algebra", Title: "Linear Algebra", Description: "Vectors and matrices", Category: "Math", Pages: 200, Premium: true, Position: 1},
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	calls []bool
	err   error
}

func (f *fakeEnqueuer) EnqueueCatalogSync(_ context.Context, force bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, force)
	return "task-1", nil
}

type testEnv struct {
	t      *testing.T
	db     *database.Database
	store  *dbaccounts.LocalStore
	router *gin.Engine
	tasks  *fakeEnqueuer
}

type envSettings struct {
	router RouterConfig
	auth   config.Auth
}

type envOption func(*envSettings)

func withCSRF() envOption {
	return func(s *envSettings) {
		s.router.CSRFSecret = []byte("test-secret-key-32-bytes-long!!!")
	}
}

func withLoginLockout(maxAttempts int) envOption {
	return func(s *envSettings) {
		s.auth.MaxLoginAttempts = maxAttempts
		s.auth.RateLimitWindow = time.Minute
		s.auth.LockoutDuration = time.Minute
	}
}

// newTestEnv builds the full router on a seeded SQLite database with the
// sample documents mirrored.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "http.db"), database.Options{
		WithAccounts: true,
		LogLevel:     gormlogger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := dbaccounts.NewLocalStore(db.DB)
	seed(t, store)

	docs := documents.NewRepository(db.DB)
	require.NoError(t, docs.Replace(context.Background(), testDocuments))

	sessionStore := memstore.New()
	t.Cleanup(sessionStore.StopCleanup)
	sm := auth.NewSessionManager(sessionStore, config.Auth{SessionLifetime: 24 * time.Hour})

	auditRepo := dbaudit.NewRepository(db.DB)
	tasks := &fakeEnqueuer{}

	settings := envSettings{
		router: RouterConfig{
			SessionManager: sm,
			Documents:      docs,
			Auditor:        auditRepo,
			TaskClient:     tasks,
			Checks:         map[string]CheckFunc{"database": DatabaseCheck(db)},
			Version:        "test",
		},
		auth: config.Auth{BcryptCost: testBcryptCost},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	settings.router.AuthService = auth.NewService(store, sm, nil, settings.auth, nil)

	router := NewRouter(settings.router)

	return &testEnv{t: t, db: db, store: store, router: router, tasks: tasks}
}

func seed(t *testing.T, store accounts.Store) {
	t.Helper()
	adminHash, err := auth.HashPassword("admin123", testBcryptCost)
	require.NoError(t, err)
	studentHash, err := auth.HashPassword("student123", testBcryptCost)
	require.NoError(t, err)

	_, err = store.InitializeDefaults(context.Background(), []accounts.Seed{
		{Username: "admin", Name: "Admin User", PasswordHash: adminHash, Role: entities.RoleAdmin},
		{Username: "student", Name: "Student User", PasswordHash: studentHash, Role: entities.RolePremium},
	})
	require.NoError(t, err)
}

// client keeps cookies between requests like a browser would.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
	headers map[string]string
}

func (e *testEnv) client() *client {
	return &client{env: e, cookies: map[string]*http.Cookie{}, headers: map[string]string{}}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = "198.51.100.10:40000"
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	c.env.router.ServeHTTP(rr, req)

	for _, cookie := range rr.Result().Cookies() {
		if cookie.MaxAge < 0 || cookie.Value == "" {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	return rr
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) delete(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodDelete, path, nil))
}

func (c *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(c.env.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) login(username, password string) *httptest.ResponseRecorder {
	return c.postJSON("/login", LoginRequest{Username: username, Password: password})
}

// loggedIn returns a client with a session for username.
func (e *testEnv) loggedIn(username, password string) *client {
	e.t.Helper()
	c := e.client()
	rr := c.login(username, password)
	require.Equal(e.t, http.StatusOK, rr.Code, rr.Body.String())
	return c
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
