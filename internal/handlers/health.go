package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ktanui/circulate/internal/database"
)

// HealthHandler reports liveness and the state of the backing services.
// Nil dependencies are simply not checked, which keeps the handler usable
// in tests and partial deployments.
type HealthHandler struct {
	db    *database.Database
	redis *database.RedisClient
}

func NewHealthHandler(db *database.Database, redis *database.RedisClient) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
	}
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (h *HealthHandler) checks() map[string]func(context.Context) error {
	deps := make(map[string]func(context.Context) error)
	if h.db != nil {
		deps["database"] = h.db.Health
	}
	if h.redis != nil {
		deps["redis"] = h.redis.Health
	}
	return deps
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Service:   "circulate",
		Version:   "1.0.0",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]HealthCheck),
	}

	for name, ping := range h.checks() {
		if err := ping(ctx); err != nil {
			response.Checks[name] = HealthCheck{Status: "unhealthy", Message: err.Error()}
			response.Status = "unhealthy"
			continue
		}
		response.Checks[name] = HealthCheck{Status: "healthy"}
	}

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}

func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
