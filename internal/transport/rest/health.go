package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/waynecorp/project-registry/internal"
	"github.com/waynecorp/project-registry/internal/storage"
)

type HealthResponse struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Projects    int64  `json:"projects"`
	Users       int64  `json:"users"`
}

// HealthHandler reports row counts for both tables and whether the
// one-time bootstrap has run. Counts go straight to the engine through
// sqlx, bypassing the ORM.
type HealthHandler struct {
	db    *sqlx.DB
	store *storage.Store
}

func NewHealthHandler(db *sqlx.DB, store *storage.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// HandleLiveness → just says service is up
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "OK"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleReadiness → checks table row counts
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := internal.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var projects, users int64
	err := h.db.GetContext(ctx, &projects, "SELECT COUNT(*) FROM projects")
	if err == nil {
		err = h.db.GetContext(ctx, &users, "SELECT COUNT(*) FROM users")
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"status":  "unhealthy",
			"error":   "storage failure",
		})
		return
	}

	json.NewEncoder(w).Encode(HealthResponse{
		Success:     true,
		Status:      "online",
		Initialized: h.store.Initialized(),
		Projects:    projects,
		Users:       users,
	})
}
