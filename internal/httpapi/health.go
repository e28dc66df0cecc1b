package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves liveness/readiness, pinging the durable stores this
// service depends on. Grounded on ahwlsqja-go-stable's health handler pair;
// the teacher's ReadyResponse also reports a Chain field (on-chain RPC
// liveness) — dropped here since there is no blockchain component in this
// service.
type HealthHandler struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthHandler constructs a HealthHandler. Either dependency may be nil,
// in which case its readiness check is skipped (reported "unconfigured").
func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// ReadyResponse reports per-dependency readiness.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Live reports process liveness unconditionally.
func (h *HealthHandler) Live(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}

// Ready reports readiness, pinging MySQL and Redis with a short deadline.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ok", Database: "unconfigured", Redis: "unconfigured"}
	ready := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Database = "unreachable"
			ready = false
		} else {
			resp.Database = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp.Redis = "unreachable"
			ready = false
		} else {
			resp.Redis = "ok"
		}
	}

	if !ready {
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
