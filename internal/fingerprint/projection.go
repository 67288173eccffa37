package fingerprint

import (
	"math/rand"
	"sync"
)

// matrixKey identifies one projection matrix. Changing any field changes the
// bit layout of every fingerprint produced with it.
type matrixKey struct {
	seed int64
	dim  int
	bits int
}

var (
	projMu    sync.RWMutex
	projCache = make(map[matrixKey][][]float64)
)

// projectionMatrix returns the hyperplane set for (seed, dim, bits). The
// matrix is built once per process and shared read-only afterwards, so
// concurrent callers always see bit-identical hyperplanes.
//
// Generation order is fixed: hyperplane i consumes the next dim draws of
// NormFloat64 from rand.New(rand.NewSource(seed)). This, together with the Go
// 1 compatibility promise for math/rand, is the contract named by
// GeneratorVersion.
func projectionMatrix(seed int64, dim, bits int) [][]float64 {
	key := matrixKey{seed: seed, dim: dim, bits: bits}

	projMu.RLock()
	m, ok := projCache[key]
	projMu.RUnlock()
	if ok {
		return m
	}

	projMu.Lock()
	defer projMu.Unlock()
	if m, ok := projCache[key]; ok {
		return m
	}

	rng := rand.New(rand.NewSource(seed))
	m = make([][]float64, bits)
	for i := range m {
		plane := make([]float64, dim)
		for j := range plane {
			plane[j] = rng.NormFloat64()
		}
		m[i] = plane
	}
	projCache[key] = m
	return m
}
