package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

// setupMiddlewareRouter wires the session stack the same way the HTTP
// server does and adds a /test-login/:who route that starts a session.
func setupMiddlewareRouter(t *testing.T) (*gin.Engine, *testClock) {
	t.Helper()

	sm, clock := setupSessionManager(t)
	mw := NewMiddleware(sm)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.Use(mw.Handler())

	router.POST("/test-login/:who", func(c *gin.Context) {
		acc := studentAccount
		if c.Param("who") == "admin" {
			acc = adminAccount
		}
		if _, err := sm.Start(c.Request.Context(), acc); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/whoami", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"username": GetUsername(c),
			"name":     GetDisplayName(c),
			"role":     GetRole(c),
			"ip":       clientInfoFrom(c.Request.Context()).IP,
		})
	})
	router.GET("/premium", mw.RequirePremium(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/admin", mw.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router, clock
}

func loginAs(t *testing.T, router *gin.Engine, who string) []*http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/test-login/"+who, nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie should be set")
	return cookies
}

func get(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:5555"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestMiddleware_Anonymous(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/whoami", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/premium", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/admin", nil).Code)
}

func TestMiddleware_PremiumSession(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)
	cookies := loginAs(t, router, "student")

	rr := get(router, "/whoami", cookies)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"student"`)
	assert.Contains(t, rr.Body.String(), `"role":"premium"`)
	assert.Contains(t, rr.Body.String(), `"ip":"203.0.113.7"`)

	assert.Equal(t, http.StatusOK, get(router, "/premium", cookies).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", cookies).Code)
}

func TestMiddleware_AdminSession(t *testing.T) {
	router, _ := setupMiddlewareRouter(t)
	cookies := loginAs(t, router, "admin")

	assert.Equal(t, http.StatusOK, get(router, "/premium", cookies).Code)
	assert.Equal(t, http.StatusOK, get(router, "/admin", cookies).Code)
}

func TestMiddleware_ExpiredSession(t *testing.T) {
	router, clock := setupMiddlewareRouter(t)
	cookies := loginAs(t, router, "admin")

	clock.Advance(SessionMaxAge)
	assert.Equal(t, http.StatusOK, get(router, "/admin", cookies).Code)

	clock.Advance(time.Millisecond)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/admin", cookies).Code)
}

func TestGetRole_WrongType(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextKeyRole, "admin")

	assert.Equal(t, entities.Role(""), GetRole(c))
	assert.False(t, IsAuthenticated(c))
}
