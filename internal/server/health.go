package server

import (
	"encoding/json"
	"net/http"

	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/storage"
)

type HealthResponse struct {
	Status    string `json:"status"`
	DB        string `json:"db"`
	RunCount  int    `json:"run_count"`
	DataDir   string `json:"data_dir"`
	Port      int    `json:"port"`
	Policy    string `json:"policy"`
	Restarts  int    `json:"restarts"`
	MaxSweeps int    `json:"max_sweeps"`
}

// HealthHandler returns a handler for GET /health.
func HealthHandler(cfg config.Config, db *storage.Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "connected"
		runCount := 0
		if db == nil {
			dbStatus = "unavailable"
		} else if n, err := db.CountRuns(); err != nil {
			dbStatus = "error"
		} else {
			runCount = n
		}

		resp := HealthResponse{
			Status:    "ok",
			DB:        dbStatus,
			RunCount:  runCount,
			DataDir:   cfg.DataDir,
			Port:      cfg.Port,
			Policy:    cfg.Cluster.Policy,
			Restarts:  cfg.Cluster.Restarts,
			MaxSweeps: cfg.Cluster.MaxSweeps,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
