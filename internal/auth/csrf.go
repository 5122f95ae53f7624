package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

// CSRFTokenHeader is the header clients echo the token back in.
const CSRFTokenHeader = "X-CSRF-Token"

const csrfTokenContextKey = "csrf_token"

// CSRFMiddleware protects state-changing requests with a double-submit token.
// Safe methods (GET, HEAD, OPTIONS, TRACE) pass through and receive a token
// via GetCSRFToken. When secure is false the request is marked as plaintext
// so the Origin/Referer check accepts http:// origins.
func CSRFMiddleware(secret []byte, secure bool) gin.HandlerFunc {
	csrfProtect := csrf.Protect(
		secret,
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteStrictMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	)

	return func(c *gin.Context) {
		if !secure {
			c.Request = csrf.PlaintextHTTPRequest(c.Request)
		}

		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set(csrfTokenContextKey, csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "CSRF token invalid or missing"
	if err := csrf.FailureReason(r); err != nil && !strings.Contains(err.Error(), "token") {
		reason = "CSRF check failed: " + err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"` + strings.ReplaceAll(reason, `"`, `'`) + `"}`))
}

// GetCSRFToken returns the token minted for the current request, if any.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfTokenContextKey); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
