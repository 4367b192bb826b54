package kmedoids

import "slices"

// SwapCost evaluates replacing medoids[pos] with candidate. It returns the
// labeling and total cost of the trial medoid set, recomputed from scratch.
// medoids is left untouched.
func SwapCost(m *Matrix, medoids []int, pos, candidate int) ([]int, float64) {
	trial := slices.Clone(medoids)
	trial[pos] = candidate
	labels := Assign(m, trial)
	return labels, Cost(m, trial, labels)
}
