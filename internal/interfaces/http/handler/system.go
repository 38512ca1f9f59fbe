package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency's reachability.
type Pinger interface {
	Ping() error
}

// SystemHandler serves health and readiness probes.
type SystemHandler struct {
	db      Pinger
	started time.Time
}

// NewSystemHandler creates a new system handler. db may be nil in tests.
func NewSystemHandler(db Pinger) *SystemHandler {
	return &SystemHandler{db: db, started: time.Now()}
}

// Health handles GET /healthz. The database check is included so the probe
// fails fast when the pool has gone away.
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	dbStatus := "ok"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			dbStatus = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
