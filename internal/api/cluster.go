package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/ingest"
	"github.com/oho/kmedoids-daemon/internal/kmedoids"
	"github.com/oho/kmedoids-daemon/internal/pipeline"
	"github.com/oho/kmedoids-daemon/internal/storage"
)

type clusterItem struct {
	Label   int      `json:"label"`
	Medoid  string   `json:"medoid"`
	Members []string `json:"members"`
}

type clusterResponse struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	K           int           `json:"k"`
	EntityCount int           `json:"entity_count"`
	Policy      string        `json:"policy"`
	Cost        float64       `json:"cost"`
	Sweeps      int           `json:"sweeps"`
	Swaps       int           `json:"swaps"`
	Evaluations int           `json:"evaluations"`
	Restarts    int           `json:"restarts"`
	Seed        int64         `json:"seed"`
	Medoids     []string      `json:"medoids"`
	Clusters    []clusterItem `json:"clusters"`
	Error       *string       `json:"error,omitempty"`
	CreatedAt   string        `json:"created_at"`
}

func newClusterResponse(run storage.Run, members []storage.Membership) clusterResponse {
	clusters := make([]clusterItem, run.K)
	for i := range clusters {
		clusters[i] = clusterItem{Label: i, Members: []string{}}
		if i < len(run.Medoids) {
			clusters[i].Medoid = run.Medoids[i]
		}
	}
	for _, m := range members {
		if m.Label >= 0 && m.Label < len(clusters) {
			clusters[m.Label].Members = append(clusters[m.Label].Members, m.Entity)
		}
	}
	return clusterResponse{
		RunID: run.ID, Status: string(run.Status), K: run.K, EntityCount: run.EntityCount,
		Policy: run.Policy, Cost: run.TotalCost, Sweeps: run.Sweeps, Swaps: run.Swaps,
		Evaluations: run.Evaluations, Restarts: run.Restarts, Seed: run.Seed,
		Medoids: run.Medoids, Clusters: clusters, Error: run.ErrorMessage, CreatedAt: run.CreatedAt,
	}
}

// statusFor maps clustering errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		parseErr  *kmedoids.ParseError
		shapeErr  *kmedoids.ShapeError
		dupErr    *kmedoids.DuplicateEntityError
		entityErr *kmedoids.UnknownEntityError
		csvErr    *csv.ParseError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &sizeErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &parseErr), errors.As(err, &shapeErr), errors.As(err, &dupErr),
		errors.As(err, &entityErr), errors.As(err, &csvErr),
		errors.Is(err, kmedoids.ErrEmptyMatrix), errors.Is(err, kmedoids.ErrInvalidK),
		errors.Is(err, kmedoids.ErrInvalidMedoids):
		return http.StatusBadRequest
	case errors.Is(err, kmedoids.ErrDidNotConverge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// parseClusterQuery overlays query parameters on the runner defaults.
func parseClusterQuery(runner *pipeline.Runner, r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	k, err := strconv.Atoi(q.Get("k"))
	if err != nil {
		return pipeline.Request{}, errors.New("k must be an integer")
	}
	req, err := runner.DefaultRequest(k)
	if err != nil {
		return req, err
	}
	if v := q.Get("restarts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 64 {
			return req, errors.New("restarts must be an integer in [1,64]")
		}
		req.Restarts = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New("seed must be an integer")
		}
		req.Seed = n
	}
	if v := q.Get("max_sweeps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, errors.New("max_sweeps must be a positive integer")
		}
		req.MaxSweeps = n
	}
	if v := q.Get("policy"); v != "" {
		p, err := kmedoids.ParsePolicy(v)
		if err != nil {
			return req, err
		}
		req.Policy = p
	}
	if v := q.Get("medoids"); v != "" {
		req.Initial = strings.Split(v, ",")
	}
	return req, nil
}

// ClusterRouter clusters a CSV distance matrix posted as the request body.
func ClusterRouter(runner *pipeline.Runner, cfg config.ServerConfig) chi.Router {
	r := chi.NewRouter()
	timeout := time.Duration(cfg.RequestTimeout * float64(time.Second))

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		req, err := parseClusterQuery(runner, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		body := http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes)
		m, err := ingest.Load(body)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		out, err := runner.Run(ctx, m, req)
		if out == nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(statusFor(err))
		}
		json.NewEncoder(w).Encode(newClusterResponse(out.Run, out.Members))
	})

	r.Get("/activity", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runner.Activity())
	})

	return r
}
