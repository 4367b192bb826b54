package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oho/kmedoids-daemon/internal/config"
	"github.com/oho/kmedoids-daemon/internal/kmedoids"
	"github.com/oho/kmedoids-daemon/internal/metrics"
	"github.com/oho/kmedoids-daemon/internal/storage"
)

func newTestDB(t *testing.T) *storage.Database {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

// Two tight groups {a,b,c} and {x,y,z}, 10 apart.
func groupMatrix(t *testing.T) *kmedoids.Matrix {
	t.Helper()
	m, err := kmedoids.NewMatrix(
		[]string{"a", "b", "c", "x", "y", "z"},
		[][]float64{
			{0, 2, 1, 10, 10, 10},
			{2, 0, 2, 10, 10, 10},
			{1, 2, 0, 10, 10, 10},
			{10, 10, 10, 0, 2, 1},
			{10, 10, 10, 2, 0, 2},
			{10, 10, 10, 1, 2, 0},
		},
	)
	require.NoError(t, err)
	return m
}

func newRunner(t *testing.T) (*Runner, *storage.Database, *metrics.Collector) {
	t.Helper()
	db := newTestDB(t)
	mc := metrics.NewCollector("test")
	return NewRunner(db, mc, config.DefaultConfig().Cluster), db, mc
}

func TestRunPersistsBestRestart(t *testing.T) {
	r, db, mc := newRunner(t)
	m := groupMatrix(t)

	out, err := r.Run(context.Background(), m, Request{K: 2, Restarts: 4, Seed: 1, MaxSweeps: 100})
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, 6.0, out.Run.TotalCost)
	assert.Equal(t, storage.RunCompleted, out.Run.Status)
	assert.Equal(t, 4, out.Run.Restarts)
	assert.Equal(t, int64(1+out.Restart), out.Run.Seed)
	assert.ElementsMatch(t, [][]string{{"a", "b", "c"}, {"x", "y", "z"}}, out.Result.Assignment.Clusters())

	got, err := db.GetRun(out.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, out.Run.Medoids, got.Medoids)

	members, err := db.GetMemberships(out.Run.ID)
	require.NoError(t, err)
	assert.Len(t, members, 6)
	medoids := 0
	for _, mb := range members {
		if mb.IsMedoid {
			medoids++
		}
	}
	assert.Equal(t, 2, medoids)

	assert.Equal(t, 1.0, testutil.ToFloat64(mc.Runs.WithLabelValues("completed")))
	assert.NotEmpty(t, r.Activity())
}

func TestRunInvalidK(t *testing.T) {
	r, db, mc := newRunner(t)

	_, err := r.Run(context.Background(), groupMatrix(t), Request{K: 7})
	require.ErrorIs(t, err, kmedoids.ErrInvalidK)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.Runs.WithLabelValues("failed")))

	n, err := db.CountRuns()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunUnconvergedIsStillPersisted(t *testing.T) {
	r, db, _ := newRunner(t)

	out, err := r.Run(context.Background(), groupMatrix(t), Request{
		K: 2, MaxSweeps: 1, Initial: []string{"a", "b"},
	})
	require.ErrorIs(t, err, kmedoids.ErrDidNotConverge)
	require.NotNil(t, out)
	assert.Equal(t, storage.RunUnconverged, out.Run.Status)
	assert.False(t, out.Result.Converged)

	got, err := db.GetRun(out.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.ErrorMessage)
	assert.Contains(t, *got.ErrorMessage, "did not converge")
}

func TestRunUnknownInitialMedoid(t *testing.T) {
	r, _, _ := newRunner(t)
	_, err := r.Run(context.Background(), groupMatrix(t), Request{K: 2, Initial: []string{"a", "q"}})
	var uerr *kmedoids.UnknownEntityError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "q", uerr.Name)
}

func TestRunCanceled(t *testing.T) {
	r, db, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, groupMatrix(t), Request{K: 2, Restarts: 2, Seed: 3})
	require.ErrorIs(t, err, context.Canceled)

	n, _ := db.CountRuns()
	assert.Zero(t, n)
}

func TestRunWithoutStore(t *testing.T) {
	r := NewRunner(nil, nil, config.DefaultConfig().Cluster)
	out, err := r.Run(context.Background(), groupMatrix(t), Request{K: 1, Seed: 5, Policy: kmedoids.PolicySteepest})
	require.NoError(t, err)
	assert.Equal(t, "steepest", out.Run.Policy)
	assert.Len(t, out.Result.Medoids, 1)
}

func TestDefaultRequest(t *testing.T) {
	cfg := config.DefaultConfig().Cluster
	cfg.Restarts = 3
	cfg.Policy = "steepest"
	r := NewRunner(nil, nil, cfg)

	req, err := r.DefaultRequest(4)
	require.NoError(t, err)
	assert.Equal(t, 4, req.K)
	assert.Equal(t, 3, req.Restarts)
	assert.Equal(t, kmedoids.PolicySteepest, req.Policy)
	assert.NotZero(t, req.Seed)

	cfg.Policy = "bogus"
	_, err = NewRunner(nil, nil, cfg).DefaultRequest(2)
	assert.Error(t, err)
}

func TestPickBest(t *testing.T) {
	results := []restartResult{
		{result: &kmedoids.Result{Cost: 3, Converged: false}},
		{result: &kmedoids.Result{Cost: 5, Converged: true}},
		{result: &kmedoids.Result{Cost: 4, Converged: true}},
		{result: &kmedoids.Result{Cost: 4, Converged: true}},
	}
	assert.Equal(t, 2, pickBest(results))

	assert.Equal(t, 0, pickBest(results[:1]))
}
