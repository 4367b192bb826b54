package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/kmedoids"
	"github.com/oho/kmedoids-daemon/internal/metrics"
	"github.com/oho/kmedoids-daemon/internal/storage"
)

// Request describes one clustering run.
type Request struct {
	K         int
	Restarts  int
	Seed      int64
	Policy    kmedoids.SwapPolicy
	MaxSweeps int
	// Initial fixes the starting medoids by name. When set, a single restart runs.
	Initial []string
}

// Outcome is the best restart of a run, as persisted.
type Outcome struct {
	Run     storage.Run
	Members []storage.Membership
	Result  *kmedoids.Result
	Restart int
}

// Runner executes clustering runs: independent restarts share one read-only
// matrix and run concurrently, each on its own model.
type Runner struct {
	db      *storage.Database
	metrics *metrics.Collector
	cfg     config.ClusterConfig

	activityLog []map[string]any
	logMu       sync.Mutex
}

// NewRunner wires a runner. db and mc may be nil to skip persistence and metrics.
func NewRunner(db *storage.Database, mc *metrics.Collector, cfg config.ClusterConfig) *Runner {
	return &Runner{db: db, metrics: mc, cfg: cfg}
}

// DefaultRequest fills a request for k from the configured defaults. A zero
// configured seed picks a time-based one.
func (r *Runner) DefaultRequest(k int) (Request, error) {
	policy, err := kmedoids.ParsePolicy(r.cfg.Policy)
	if err != nil {
		return Request{}, err
	}
	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return Request{
		K:         k,
		Restarts:  max(r.cfg.Restarts, 1),
		Seed:      seed,
		Policy:    policy,
		MaxSweeps: r.cfg.MaxSweeps,
	}, nil
}

func (r *Runner) emit(action, detail string, counts map[string]any) {
	entry := map[string]any{
		"ts":     time.Now().UTC().Format("15:04:05"),
		"action": action,
		"detail": detail,
	}
	if counts != nil {
		entry["counts"] = counts
	}
	r.logMu.Lock()
	r.activityLog = append(r.activityLog, entry)
	if len(r.activityLog) > 200 {
		r.activityLog = r.activityLog[len(r.activityLog)-200:]
	}
	r.logMu.Unlock()
}

// Activity returns the recent activity log, oldest first.
func (r *Runner) Activity() []map[string]any {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	out := make([]map[string]any, len(r.activityLog))
	copy(out, r.activityLog)
	return out
}

type restartResult struct {
	result *kmedoids.Result
	err    error
}

// Run clusters m. The lowest-cost converged restart wins, ties going to the
// lowest restart index. If no restart converges, the best unconverged one is
// still returned and persisted together with an ErrDidNotConverge error.
func (r *Runner) Run(ctx context.Context, m *kmedoids.Matrix, req Request) (*Outcome, error) {
	start := time.Now()
	if req.K <= 0 || req.K > m.Len() {
		r.observeRun(storage.RunFailed, start)
		return nil, &kmedoids.InvalidKError{K: req.K, N: m.Len()}
	}
	restarts := max(req.Restarts, 1)
	if req.Initial != nil {
		restarts = 1
	}

	slog.Info("Clustering", "entities", m.Len(), "k", req.K, "restarts", restarts, "policy", req.Policy.String())
	r.emit("started", fmt.Sprintf("k=%d entities=%d", req.K, m.Len()), map[string]any{"restarts": restarts})

	results := make([]restartResult, restarts)
	g, gctx := errgroup.WithContext(ctx)
	for i := range restarts {
		g.Go(func() error {
			res, err := r.restart(gctx, m, req, i)
			if err != nil && !errors.Is(err, kmedoids.ErrDidNotConverge) {
				return fmt.Errorf("restart %d: %w", i, err)
			}
			results[i] = restartResult{result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.observeRun(storage.RunFailed, start)
		r.emit("failed", err.Error(), nil)
		return nil, err
	}

	best := pickBest(results)
	chosen := results[best]
	outcome := r.buildOutcome(m, req, restarts, best, chosen)

	if r.db != nil {
		if err := r.db.InsertRun(outcome.Run, outcome.Members); err != nil {
			r.observeRun(storage.RunFailed, start)
			return nil, fmt.Errorf("persist run: %w", err)
		}
	}
	r.observeRun(outcome.Run.Status, start)
	r.emit(string(outcome.Run.Status), outcome.Run.ID, map[string]any{
		"cost": outcome.Run.TotalCost, "sweeps": outcome.Run.Sweeps, "restart": best,
	})
	slog.Info("Clustering finished",
		"run_id", outcome.Run.ID, "status", outcome.Run.Status,
		"cost", outcome.Run.TotalCost, "sweeps", outcome.Run.Sweeps, "duration", time.Since(start))

	if chosen.err != nil {
		return outcome, chosen.err
	}
	return outcome, nil
}

func (r *Runner) restart(ctx context.Context, m *kmedoids.Matrix, req Request, i int) (*kmedoids.Result, error) {
	model, err := kmedoids.NewModel(m, req.K,
		kmedoids.WithPolicy(req.Policy),
		kmedoids.WithMaxSweeps(req.MaxSweeps),
		kmedoids.WithLogger(slog.Default().With("restart", i)),
	)
	if err != nil {
		return nil, err
	}

	var init kmedoids.Initializer = kmedoids.NewRandomInitializer(req.Seed + int64(i))
	if req.Initial != nil {
		init = kmedoids.FixedInitializer{Names: req.Initial}
	}
	if err := model.Init(init); err != nil {
		return nil, err
	}

	res, err := model.Fit(ctx)
	if errors.Is(err, kmedoids.ErrDidNotConverge) {
		res = model.Result()
	} else if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ObserveRestart(res.Sweeps, res.Swaps, res.Evaluations)
	}
	return res, err
}

func pickBest(results []restartResult) int {
	best := -1
	for i, rr := range results {
		if best < 0 {
			best = i
			continue
		}
		cur := results[best].result
		if rr.result.Converged != cur.Converged {
			if rr.result.Converged {
				best = i
			}
			continue
		}
		if rr.result.Cost < cur.Cost {
			best = i
		}
	}
	return best
}

func (r *Runner) buildOutcome(m *kmedoids.Matrix, req Request, restarts, best int, chosen restartResult) *Outcome {
	res := chosen.result
	run := storage.NewRun(uuid.NewString(), req.K, m.Len(), req.Policy.String())
	run.TotalCost = res.Cost
	run.Sweeps = res.Sweeps
	run.Swaps = res.Swaps
	run.Evaluations = res.Evaluations
	run.Restarts = restarts
	run.Seed = req.Seed + int64(best)
	run.Medoids = res.Medoids
	if chosen.err != nil {
		run.Status = storage.RunUnconverged
		msg := chosen.err.Error()
		run.ErrorMessage = &msg
	}

	isMedoid := make(map[string]bool, len(res.Medoids))
	for _, name := range res.Medoids {
		isMedoid[name] = true
	}
	var members []storage.Membership
	for label, names := range res.Assignment.Clusters() {
		for _, name := range names {
			members = append(members, storage.Membership{Entity: name, Label: label, IsMedoid: isMedoid[name]})
		}
	}
	return &Outcome{Run: run, Members: members, Result: res, Restart: best}
}

func (r *Runner) observeRun(status storage.RunStatus, start time.Time) {
	if r.metrics != nil {
		r.metrics.ObserveRun(string(status), time.Since(start))
	}
}
