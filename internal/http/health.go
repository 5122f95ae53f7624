package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/pdflibrary/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// DatabaseCheck pings the embedded SQLite database.
func DatabaseCheck(db *database.Database) CheckFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

type HealthController struct {
	checks  map[string]CheckFunc
	version string
	timeout time.Duration
}

func NewHealthController(checks map[string]CheckFunc, version string) *HealthController {
	return &HealthController{
		checks:  checks,
		version: version,
		timeout: 2 * time.Second,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if len(h.checks) == 0 {
		checks["database"] = "not configured"
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			checks[name] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks[name] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

func (h *HealthController) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
