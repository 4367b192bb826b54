package kmedoids

import "slices"

// Assign labels every entity with the position of its nearest medoid.
// A medoid is always labeled with its own position; ties between medoids
// go to the one that comes first in medoids.
func Assign(m *Matrix, medoids []int) []int {
	labels := make([]int, m.Len())
	isMedoid := make([]bool, m.Len())
	for pos, med := range medoids {
		labels[med] = pos
		isMedoid[med] = true
	}
	for node := range labels {
		if isMedoid[node] {
			continue
		}
		best := 0
		minDist := m.At(node, medoids[0])
		for pos, med := range medoids {
			if d := m.At(node, med); d < minDist {
				minDist = d
				best = pos
			}
		}
		labels[node] = best
	}
	return labels
}

// Assignment is a name-keyed view of a labeling.
type Assignment struct {
	m      *Matrix
	k      int
	labels []int
}

// NewAssignment wraps labels computed against m for k clusters.
func NewAssignment(m *Matrix, k int, labels []int) Assignment {
	return Assignment{m: m, k: k, labels: slices.Clone(labels)}
}

// Label returns the cluster label of the named entity.
func (a Assignment) Label(name string) (int, error) {
	i, err := a.m.Index(name)
	if err != nil {
		return 0, err
	}
	return a.labels[i], nil
}

// Labels returns the entity name to label mapping.
func (a Assignment) Labels() map[string]int {
	out := make(map[string]int, len(a.labels))
	for i, l := range a.labels {
		out[a.m.Name(i)] = l
	}
	return out
}

// Members lists the entities labeled label, in entity order.
func (a Assignment) Members(label int) []string {
	var out []string
	for i, l := range a.labels {
		if l == label {
			out = append(out, a.m.Name(i))
		}
	}
	return out
}

// Clusters returns the members of every label in [0,k).
func (a Assignment) Clusters() [][]string {
	out := make([][]string, a.k)
	for i, l := range a.labels {
		out[l] = append(out[l], a.m.Name(i))
	}
	return out
}
