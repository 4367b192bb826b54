// Package kmedoids clusters entities around medoids using only a
// precomputed pairwise distance matrix.
package kmedoids

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// DefaultMaxSweeps bounds Fit when no limit is configured.
const DefaultMaxSweeps = 1000

// State is the lifecycle stage of a Model.
type State int

const (
	Uninitialized State = iota
	Converging
	Converged
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Converging:
		return "converging"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SwapPolicy selects how a sweep searches for and applies swaps.
type SwapPolicy int

const (
	// PolicyGreedy visits medoids in order and applies each medoid's best
	// improving swap immediately, so later medoids in the same sweep are
	// evaluated against the updated set.
	PolicyGreedy SwapPolicy = iota
	// PolicySteepest evaluates every (medoid, candidate) pair against the
	// medoid set frozen at the start of the sweep and applies only the single
	// best improving swap.
	PolicySteepest
)

func (p SwapPolicy) String() string {
	switch p {
	case PolicyGreedy:
		return "greedy"
	case PolicySteepest:
		return "steepest"
	}
	return fmt.Sprintf("SwapPolicy(%d)", int(p))
}

// ParsePolicy maps a policy name back to its SwapPolicy.
func ParsePolicy(s string) (SwapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "greedy":
		return PolicyGreedy, nil
	case "steepest":
		return PolicySteepest, nil
	}
	return 0, fmt.Errorf("unknown swap policy %q", s)
}

// Options configure a Model.
type Options struct {
	MaxSweeps int
	Policy    SwapPolicy
	Logger    *slog.Logger
}

// Option mutates Options.
type Option func(*Options)

// WithMaxSweeps caps the number of sweeps Fit may run. Values <= 0 select
// DefaultMaxSweeps.
func WithMaxSweeps(n int) Option {
	return func(o *Options) { o.MaxSweeps = n }
}

// WithPolicy sets the swap policy.
func WithPolicy(p SwapPolicy) Option {
	return func(o *Options) { o.Policy = p }
}

// WithLogger sets the logger used for per-sweep debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// Model owns the optimization state of a single clustering run. It is not
// safe for concurrent use; independent models may share one Matrix.
type Model struct {
	m    *Matrix
	k    int
	opts Options

	state       State
	medoids     []int
	labels      []int
	cost        float64
	sweeps      int
	swaps       int
	evaluations int
}

// NewModel returns an uninitialized model clustering m into k groups.
func NewModel(m *Matrix, k int, opts ...Option) (*Model, error) {
	if k <= 0 || k > m.Len() {
		return nil, &InvalidKError{K: k, N: m.Len()}
	}
	o := Options{MaxSweeps: DefaultMaxSweeps}
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxSweeps <= 0 {
		o.MaxSweeps = DefaultMaxSweeps
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return &Model{m: m, k: k, opts: o}, nil
}

// Init picks the starting medoids and computes their assignment and cost.
// It may be called again to restart the search from a new medoid set.
func (md *Model) Init(init Initializer) error {
	medoids, err := init.Medoids(md.m, md.k)
	if err != nil {
		return fmt.Errorf("initialize medoids: %w", err)
	}
	if err := md.checkMedoids(medoids); err != nil {
		return err
	}
	md.medoids = slices.Clone(medoids)
	md.labels = Assign(md.m, md.medoids)
	md.cost = Cost(md.m, md.medoids, md.labels)
	md.sweeps, md.swaps, md.evaluations = 0, 0, 0
	md.state = Converging
	md.opts.Logger.Debug("Initialized medoids", "medoids", md.MedoidNames(), "cost", md.cost)
	return nil
}

func (md *Model) checkMedoids(medoids []int) error {
	if len(medoids) != md.k {
		return fmt.Errorf("%w: got %d medoids, want %d", ErrInvalidMedoids, len(medoids), md.k)
	}
	seen := make(map[int]bool, len(medoids))
	for _, med := range medoids {
		if med < 0 || med >= md.m.Len() {
			return fmt.Errorf("%w: index %d out of range", ErrInvalidMedoids, med)
		}
		if seen[med] {
			return fmt.Errorf("%w: %q repeated", ErrInvalidMedoids, md.m.Name(med))
		}
		seen[med] = true
	}
	return nil
}

// Sweep runs one pass of the swap search and reports whether the medoid set
// changed. A sweep that changes nothing moves the model to Converged.
func (md *Model) Sweep() (bool, error) {
	switch md.state {
	case Uninitialized:
		return false, ErrUninitialized
	case Converged:
		return false, nil
	}

	prior := slices.Clone(md.medoids)
	if md.opts.Policy == PolicySteepest {
		md.sweepSteepest(prior)
	} else {
		md.sweepGreedy()
	}
	md.sweeps++

	changed := !slices.Equal(prior, md.medoids)
	md.opts.Logger.Debug("Sweep finished",
		"sweep", md.sweeps, "changed", changed, "cost", md.cost, "medoids", md.MedoidNames())
	if !changed {
		md.labels = Assign(md.m, md.medoids)
		md.state = Converged
	}
	return changed, nil
}

func (md *Model) sweepGreedy() {
	for pos := range md.medoids {
		best, bestLabels, bestCost := -1, []int(nil), 0.0
		for node := range md.m.Len() {
			if slices.Contains(md.medoids, node) {
				continue
			}
			labels, cost := SwapCost(md.m, md.medoids, pos, node)
			md.evaluations++
			if best < 0 || cost < bestCost {
				best, bestLabels, bestCost = node, labels, cost
			}
		}
		if best >= 0 && bestCost < md.cost {
			md.medoids[pos] = best
			md.labels = bestLabels
			md.cost = bestCost
			md.swaps++
		}
	}
}

func (md *Model) sweepSteepest(frozen []int) {
	bestPos, best, bestLabels, bestCost := -1, -1, []int(nil), 0.0
	for pos := range frozen {
		for node := range md.m.Len() {
			if slices.Contains(frozen, node) {
				continue
			}
			labels, cost := SwapCost(md.m, frozen, pos, node)
			md.evaluations++
			if best < 0 || cost < bestCost {
				bestPos, best, bestLabels, bestCost = pos, node, labels, cost
			}
		}
	}
	if best >= 0 && bestCost < md.cost {
		md.medoids[bestPos] = best
		md.labels = bestLabels
		md.cost = bestCost
		md.swaps++
	}
}

// Fit sweeps until the medoid set stops changing. ctx is checked between
// sweeps; an interrupted model keeps a valid, possibly suboptimal, medoid set.
// ErrDidNotConverge is returned once the sweep limit is spent.
func (md *Model) Fit(ctx context.Context) (*Result, error) {
	if md.state == Uninitialized {
		return nil, ErrUninitialized
	}
	for md.state == Converging {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fit interrupted after %d sweeps: %w", md.sweeps, err)
		}
		if md.sweeps >= md.opts.MaxSweeps {
			return nil, fmt.Errorf("%w after %d sweeps (cost %g)", ErrDidNotConverge, md.sweeps, md.cost)
		}
		if _, err := md.Sweep(); err != nil {
			return nil, err
		}
	}
	return md.Result(), nil
}

// Result snapshots the model's current medoids and assignment.
func (md *Model) Result() *Result {
	return &Result{
		K:           md.k,
		Medoids:     md.MedoidNames(),
		Assignment:  NewAssignment(md.m, md.k, md.labels),
		Cost:        md.cost,
		Sweeps:      md.sweeps,
		Swaps:       md.swaps,
		Evaluations: md.evaluations,
		Converged:   md.state == Converged,
	}
}

// State reports the lifecycle stage.
func (md *Model) State() State {
	return md.state
}

func (md *Model) K() int {
	return md.k
}

// Cost is the total cost of the current medoid set.
func (md *Model) Cost() float64 {
	return md.cost
}

func (md *Model) Sweeps() int {
	return md.sweeps
}

// Medoids returns the medoid indices in label order.
func (md *Model) Medoids() []int {
	return slices.Clone(md.medoids)
}

func (md *Model) Labels() []int {
	return slices.Clone(md.labels)
}

func (md *Model) Matrix() *Matrix {
	return md.m
}

func (md *Model) Policy() SwapPolicy {
	return md.opts.Policy
}

// MedoidNames returns the medoid names in label order.
func (md *Model) MedoidNames() []string {
	names := make([]string, len(md.medoids))
	for i, med := range md.medoids {
		names[i] = md.m.Name(med)
	}
	return names
}

// Result is the outcome of a clustering run.
type Result struct {
	K           int
	Medoids     []string
	Assignment  Assignment
	Cost        float64
	Sweeps      int
	Swaps       int
	Evaluations int
	Converged   bool
}

// WriteClusters prints one line per label: "Cluster <label>: <members...>".
func (r *Result) WriteClusters(w io.Writer) error {
	for label, members := range r.Assignment.Clusters() {
		if _, err := fmt.Fprintf(w, "Cluster %d: %s\n", label, strings.Join(members, " ")); err != nil {
			return err
		}
	}
	return nil
}
