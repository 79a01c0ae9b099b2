package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"promovote/internal/service"
	"promovote/pkg/database"
	"promovote/pkg/logger"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db            *database.PostgresDB
	votingService *service.VotingService
	log           *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.PostgresDB, votingService *service.VotingService, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:            db,
		votingService: votingService,
		log:           log,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.db.Health(ctx); err != nil {
		h.log.WithError(err).Error("Database health check failed")
		checks["database"] = "unhealthy"
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "healthy"
	}

	if err := h.votingService.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Warn("Cache health check failed")
		checks["cache"] = "unhealthy"
	} else {
		checks["cache"] = "healthy"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   "promovote",
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.WithError(err).Error("Failed to encode health check response")
	}
}
