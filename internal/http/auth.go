package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

// LoginRequest is accepted as a form post or a JSON body.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// SessionResponse describes the caller's session. Session is nil when
// anonymous.
type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	Session       *auth.Session `json:"session"`
	Premium       bool          `json:"premium"`
	Admin         bool          `json:"admin"`
}

// AuthController serves login, logout, subscription and session endpoints.
type AuthController struct {
	service *auth.Service
}

func NewAuthController(service *auth.Service) *AuthController {
	return &AuthController{service: service}
}

func (a *AuthController) RegisterRoutes(r gin.IRouter) {
	r.POST("/login", a.Login)
	r.POST("/logout", a.Logout)
	r.POST("/subscribe", a.Subscribe)
	r.GET("/api/session", a.Session)
	r.GET("/api/csrf", a.CSRFToken)
}

// Login handles POST /login. Lockouts answer 429 with Retry-After.
func (a *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	acc, err := a.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": acc})
}

// Logout handles POST /logout and always redirects to a local path. It is
// POST only since CSRF checks skip safe methods.
func (a *AuthController) Logout(c *gin.Context) {
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}

	target, err := a.service.Logout(c.Request.Context(), next)
	if err != nil {
		logger.FromContext(c.Request.Context()).Err(err).Msg("failed to end session")
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}

// Subscribe handles POST /subscribe.
func (a *AuthController) Subscribe(c *gin.Context) {
	var in auth.SubscribeInput
	if err := c.ShouldBind(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if err := a.service.Subscribe(c.Request.Context(), in); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Subscription request submitted. An admin will verify your payment.",
	})
}

// Session handles GET /api/session.
func (a *AuthController) Session(c *gin.Context) {
	sess := a.service.Sessions().Current(c.Request.Context())
	if sess == nil {
		c.JSON(http.StatusOK, SessionResponse{})
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Authenticated: true,
		Session:       sess,
		Premium:       sess.Role == entities.RolePremium || sess.Role == entities.RoleAdmin,
		Admin:         sess.Role == entities.RoleAdmin,
	})
}

// CSRFToken handles GET /api/csrf.
func (a *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"token": auth.GetCSRFToken(c)})
}
