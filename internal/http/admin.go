package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/auth"
	dbaudit "github.com/mrlokans/pdflibrary/internal/database/audit"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

// CatalogSyncEnqueuer queues a catalog reload.
type CatalogSyncEnqueuer interface {
	EnqueueCatalogSync(ctx context.Context, force bool) (string, error)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(filter dbaudit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error)
}

// AdminController serves the account moderation endpoints. All routes
// require an admin session.
type AdminController struct {
	service *auth.Service
	tasks   CatalogSyncEnqueuer
	audit   AuditReader
}

// NewAdminController creates the controller. tasks and audit may be nil,
// in which case their endpoints answer 503.
func NewAdminController(service *auth.Service, tasks CatalogSyncEnqueuer, audit AuditReader) *AdminController {
	return &AdminController{service: service, tasks: tasks, audit: audit}
}

func (a *AdminController) RegisterRoutes(r gin.IRouter, mw *auth.Middleware) {
	admin := r.Group("/api/admin", mw.RequireAdmin())
	admin.GET("/accounts", a.ListAccounts)
	admin.DELETE("/accounts/:username", a.Revoke)
	admin.GET("/pending", a.ListPending)
	admin.POST("/pending/:username/approve", a.Approve)
	admin.DELETE("/pending/:username", a.Reject)
	admin.POST("/catalog/sync", a.SyncCatalog)
	admin.GET("/audit", a.AuditEvents)
}

func (a *AdminController) ListAccounts(c *gin.Context) {
	list, err := a.service.ListAccounts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if list == nil {
		list = []entities.Account{}
	}
	c.JSON(http.StatusOK, gin.H{"accounts": list})
}

func (a *AdminController) ListPending(c *gin.Context) {
	list, err := a.service.ListPending(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if list == nil {
		list = []entities.PendingAccount{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": list})
}

// Approve handles POST /api/admin/pending/:username/approve.
func (a *AdminController) Approve(c *gin.Context) {
	a.decide(c, a.service.Approve, "pending request", "Request approved")
}

// Reject handles DELETE /api/admin/pending/:username.
func (a *AdminController) Reject(c *gin.Context) {
	a.decide(c, a.service.Reject, "pending request", "Request rejected")
}

// Revoke handles DELETE /api/admin/accounts/:username. Admin accounts are
// reported as not found.
func (a *AdminController) Revoke(c *gin.Context) {
	a.decide(c, a.service.Revoke, "account", "Access revoked")
}

func (a *AdminController) decide(
	c *gin.Context,
	op func(ctx context.Context, actor, username string) (bool, error),
	resource, message string,
) {
	username := accounts.NormalizeUsername(c.Param("username"))
	ok, err := op(c.Request.Context(), auth.GetUsername(c), username)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !ok {
		respondNotFound(c, resource)
		return
	}
	respondSuccess(c, message, gin.H{"username": username})
}

// SyncCatalog handles POST /api/admin/catalog/sync?force=true.
func (a *AdminController) SyncCatalog(c *gin.Context) {
	if a.tasks == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "background tasks are disabled"})
		return
	}
	force := c.Query("force") == "true"
	taskID, err := a.tasks.EnqueueCatalogSync(c.Request.Context(), force)
	if err != nil {
		respondInternalError(c, err, "enqueue catalog sync")
		return
	}
	respondAccepted(c, "Catalog sync queued", gin.H{"task_id": taskID})
}

// AuditEvents handles GET /api/admin/audit?limit=&offset=&username=&type=.
func (a *AdminController) AuditEvents(c *gin.Context) {
	if a.audit == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "audit log is disabled"})
		return
	}
	limit, offset := parseLimitOffset(c, 50, 500)
	filter := dbaudit.Filter{
		Username:  accounts.NormalizeUsername(c.Query("username")),
		EventType: entities.AuditEventType(c.Query("type")),
	}

	events, total, err := a.audit.GetEvents(filter, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
