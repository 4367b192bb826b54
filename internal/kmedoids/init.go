package kmedoids

import "math/rand"

// Initializer chooses the starting medoid set for a model.
type Initializer interface {
	Medoids(m *Matrix, k int) ([]int, error)
}

// RandomInitializer picks k distinct entities uniformly at random.
type RandomInitializer struct {
	rng *rand.Rand
}

// NewRandomInitializer returns a RandomInitializer seeded with seed.
func NewRandomInitializer(seed int64) *RandomInitializer {
	return &RandomInitializer{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomInitializer) Medoids(m *Matrix, k int) ([]int, error) {
	if k <= 0 || k > m.Len() {
		return nil, &InvalidKError{K: k, N: m.Len()}
	}
	var perm []int
	if r == nil || r.rng == nil {
		perm = rand.Perm(m.Len())
	} else {
		perm = r.rng.Perm(m.Len())
	}
	return perm[:k], nil
}

// FixedInitializer starts from a caller-chosen medoid set, given by name.
// Names are resolved against the matrix; label i belongs to Names[i].
type FixedInitializer struct {
	Names []string
}

func (f FixedInitializer) Medoids(m *Matrix, k int) ([]int, error) {
	return m.Indices(f.Names...)
}
