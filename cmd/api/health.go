package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type storeChecker interface {
	HealthCheck(ctx context.Context) error
}

type indexSizer interface {
	Size(ctx context.Context) (int, error)
}

type reindexStatus interface {
	Running() bool
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Index      string `json:"index"`
	IndexSize  int    `json:"indexSize"`
	Reindexing bool   `json:"reindexing"`
}

// healthHandler reports 503 only when the credential store is down. A
// failing index degrades search but not authentication.
func healthHandler(store storeChecker, index indexSizer, reindex reindexStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			Status:     "healthy",
			Database:   "up",
			Index:      "up",
			Reindexing: reindex.Running(),
		}
		status := http.StatusOK

		if err := store.HealthCheck(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}

		size, err := index.Size(ctx)
		if err != nil {
			resp.Index = "down"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
		resp.IndexSize = size

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
