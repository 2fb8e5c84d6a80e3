package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandler reports service liveness and a few host figures.
type HealthHandler struct {
	db        *sql.DB
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, startedAt: time.Now()}
}

// Health handles the unauthenticated health probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":           "OK",
		"time":             time.Now().UTC().Format(time.RFC3339),
		"storageConnected": h.db.PingContext(r.Context()) == nil,
		"uptime":           time.Since(h.startedAt).Seconds(),
	}

	system := map[string]interface{}{}
	if vm, err := mem.VirtualMemory(); err == nil {
		system["memoryUsedPercent"] = vm.UsedPercent
	}
	if avg, err := load.Avg(); err == nil {
		system["loadAvg"] = avg.Load1
	}
	if len(system) > 0 {
		status["system"] = system
	}

	writeJSON(w, http.StatusOK, status)
}
