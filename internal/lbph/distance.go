package lbph

// histogramDistance returns 1 minus the dot product of two feature vectors.
// Extract produces unit-norm vectors, so this is their cosine distance and,
// for square-rooted histograms, the squared Hellinger distance. Vectors of
// different length are maximally distant.
func histogramDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return min(max(1-dot, 0), 2)
}
