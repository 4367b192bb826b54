package kmedoids

// Cost sums the distance from every entity to the medoid it is labeled with.
func Cost(m *Matrix, medoids, labels []int) float64 {
	var total float64
	for node, label := range labels {
		total += m.At(node, medoids[label])
	}
	return total
}
