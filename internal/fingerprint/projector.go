package fingerprint

import (
	"fmt"
	"math"
	"sort"
)

// normEpsilon guards the unit normalization against near-zero aggregates.
const normEpsilon = 1e-10

// Aggregate computes the element-wise mean of per-frame feature vectors and
// normalizes it to unit length. The mean is order-independent: permuting the
// frames cannot change the result. Near-zero aggregates (blank or constant
// clips) fail with ErrDegenerateInput instead of producing an undefined
// direction.
func Aggregate(vectors [][]float64) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, ErrNoFeatures
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("feature vector %d has dimension %d, expected %d", i, len(v), dim)
		}
	}

	mean := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			mean[i] += x
		}
	}
	n := float64(len(vectors))
	var sumSquares float64
	for i := range mean {
		mean[i] /= n
		sumSquares += mean[i] * mean[i]
	}

	norm := math.Sqrt(sumSquares)
	if norm < normEpsilon {
		return nil, ErrDegenerateInput
	}
	for i := range mean {
		mean[i] /= norm
	}
	return mean, nil
}

// Project maps a unit-normalized aggregate vector to its binary fingerprint:
// a dot product against each seeded hyperplane, then binarization against the
// projected vector's own median. The median threshold keeps roughly half the
// bits set regardless of the projection's absolute scale, which stabilizes
// Hamming statistics across unrelated content.
func Project(aggregate []float64, params Params) (*Fingerprint, error) {
	if params.Bits <= 0 || params.Bits%8 != 0 {
		return nil, fmt.Errorf("fingerprint length must be a positive multiple of 8, got %d", params.Bits)
	}
	if len(aggregate) == 0 {
		return nil, ErrNoFeatures
	}

	planes := projectionMatrix(params.Seed, len(aggregate), params.Bits)
	projected := make([]float64, params.Bits)
	for i, plane := range planes {
		var dot float64
		for j, v := range aggregate {
			dot += v * plane[j]
		}
		projected[i] = dot
	}

	median := computeMedian(projected)
	packed := make([]byte, params.Bits/8)
	for i, v := range projected {
		if v > median {
			packed[i/8] |= 0x80 >> (i % 8)
		}
	}
	return &Fingerprint{params: params, packed: packed}, nil
}

// computeMedian returns the median value from a slice.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
