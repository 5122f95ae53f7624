package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/catalog"
	"github.com/mrlokans/pdflibrary/internal/database/documents"
	"github.com/mrlokans/pdflibrary/internal/entities"
)

// DocumentReader reads the mirrored catalog.
type DocumentReader interface {
	List(ctx context.Context, scope documents.Scope) ([]entities.Document, error)
	Get(ctx context.Context, id string) (*entities.Document, error)
}

// DocumentListResponse is returned by the listing endpoints. Total counts the
// documents in scope before filtering.
type DocumentListResponse struct {
	Documents []entities.Document `json:"documents"`
	Total     int                 `json:"total"`
	Shown     int                 `json:"shown"`
}

type DocumentsController struct {
	docs DocumentReader
}

func NewDocumentsController(docs DocumentReader) *DocumentsController {
	return &DocumentsController{docs: docs}
}

func (d *DocumentsController) RegisterRoutes(r gin.IRouter, mw *auth.Middleware) {
	r.GET("/api/documents", d.ListPublic)
	r.GET("/api/documents/categories", d.Categories)
	r.GET("/api/documents/:id", d.Get)
	r.GET("/api/premium/documents", mw.RequirePremium(), d.ListPremium)
}

func queryFrom(c *gin.Context) catalog.Query {
	return catalog.Query{Text: c.Query("q"), Category: c.Query("category")}
}

// ListPublic handles GET /api/documents.
func (d *DocumentsController) ListPublic(c *gin.Context) {
	d.list(c, documents.Scope{})
}

// ListPremium handles GET /api/premium/documents.
func (d *DocumentsController) ListPremium(c *gin.Context) {
	d.list(c, documents.Scope{PremiumOnly: true})
}

func (d *DocumentsController) list(c *gin.Context, scope documents.Scope) {
	docs, err := d.docs.List(c.Request.Context(), scope)
	if err != nil {
		respondInternalError(c, err, "list documents")
		return
	}

	filtered := catalog.Filter(docs, queryFrom(c))
	if filtered == nil {
		filtered = []entities.Document{}
	}
	c.JSON(http.StatusOK, DocumentListResponse{
		Documents: filtered,
		Total:     len(docs),
		Shown:     len(filtered),
	})
}

// Categories handles GET /api/documents/categories. Premium categories are
// included only for sessions with premium access.
func (d *DocumentsController) Categories(c *gin.Context) {
	scope := documents.Scope{IncludePremium: hasPremium(c)}
	docs, err := d.docs.List(c.Request.Context(), scope)
	if err != nil {
		respondInternalError(c, err, "list categories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories(docs)})
}

// Get handles GET /api/documents/:id.
func (d *DocumentsController) Get(c *gin.Context) {
	doc, err := d.docs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "get document")
		return
	}
	if doc == nil {
		respondNotFound(c, "document")
		return
	}

	if doc.Premium {
		if !auth.IsAuthenticated(c) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
			return
		}
		if !hasPremium(c) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "premium access required"})
			return
		}
	}
	c.JSON(http.StatusOK, doc)
}

func hasPremium(c *gin.Context) bool {
	role := auth.GetRole(c)
	return role == entities.RolePremium || role == entities.RoleAdmin
}
