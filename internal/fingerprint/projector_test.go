package fingerprint

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/vidtrace/vidtrace/internal/video"
)

func TestAggregateOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vectors := make([][]float64, 20)
	for i := range vectors {
		v := make([]float64, 48)
		for j := range v {
			v[j] = rng.Float64()
		}
		vectors[i] = v
	}

	forward, err := Aggregate(vectors)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	shuffled := make([][]float64, len(vectors))
	copy(shuffled, vectors)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	permuted, err := Aggregate(shuffled)
	if err != nil {
		t.Fatalf("Aggregate of shuffled vectors failed: %v", err)
	}

	for i := range forward {
		if math.Abs(forward[i]-permuted[i]) > 1e-12 {
			t.Fatalf("aggregate element %d differs after permutation: %v vs %v", i, forward[i], permuted[i])
		}
	}
}

func TestAggregateUnitNorm(t *testing.T) {
	vectors := [][]float64{{3, 0, 4}, {3, 0, 4}}
	agg, err := Aggregate(vectors)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	var sumSquares float64
	for _, v := range agg {
		sumSquares += v * v
	}
	if math.Abs(sumSquares-1) > 1e-12 {
		t.Errorf("aggregate norm squared = %v; want 1", sumSquares)
	}
}

func TestAggregateDegenerateInput(t *testing.T) {
	zero := make([]float64, 16)
	_, err := Aggregate([][]float64{zero, zero})
	if !errors.Is(err, ErrDegenerateInput) {
		t.Errorf("expected ErrDegenerateInput for all-zero vectors, got %v", err)
	}
}

func TestAggregateNoVectors(t *testing.T) {
	_, err := Aggregate(nil)
	if !errors.Is(err, ErrNoFeatures) {
		t.Errorf("expected ErrNoFeatures, got %v", err)
	}
}

func TestAggregateDimensionMismatch(t *testing.T) {
	_, err := Aggregate([][]float64{{1, 2, 3}, {1, 2}})
	if err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}

func TestProjectDeterministic(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	agg := unitVector(64, 9)

	a, err := Project(agg, params)
	if err != nil {
		t.Fatalf("first Project failed: %v", err)
	}
	b, err := Project(agg, params)
	if err != nil {
		t.Fatalf("second Project failed: %v", err)
	}

	if a.BitString() != b.BitString() {
		t.Error("projection is not deterministic for identical input and params")
	}
}

func TestProjectBalancedBits(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	fp, err := Project(unitVector(240, 4), params)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	// Median binarization keeps the population close to half the bits.
	count := fp.BitCount()
	if count < 120 || count > 136 {
		t.Errorf("bit count = %d; want close to 128", count)
	}
}

func TestProjectSeedChangesLayout(t *testing.T) {
	agg := unitVector(64, 2)

	a, err := Project(agg, Params{Seed: 42, Bits: 256})
	if err != nil {
		t.Fatalf("Project seed 42 failed: %v", err)
	}
	b, err := Project(agg, Params{Seed: 1042, Bits: 256})
	if err != nil {
		t.Fatalf("Project seed 1042 failed: %v", err)
	}

	if a.BitString() == b.BitString() {
		t.Error("different seeds produced identical fingerprints")
	}
}

func TestProjectRejectsBadBitLength(t *testing.T) {
	agg := unitVector(16, 1)
	for _, bits := range []int{0, -8, 100} {
		if _, err := Project(agg, Params{Seed: 42, Bits: bits}); err == nil {
			t.Errorf("Project should reject bits=%d", bits)
		}
	}
}

func TestProjectionMatrixSharedAcrossGoroutines(t *testing.T) {
	// Concurrent first use of the same key must yield identical fingerprints.
	params := Params{Seed: 777, Bits: 256}
	agg := unitVector(240, 6)

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fp, err := Project(agg, params)
			if err == nil {
				results[i] = fp.BitString()
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("goroutine %d saw a different projection", i)
		}
	}
}

func TestComputeDeterministic(t *testing.T) {
	opts := Options{Params: Params{Seed: 42, Bits: 256}, MaxFrames: 60, Workers: 4}

	a, _, err := Compute(context.Background(), video.NewSliceSource(syntheticClip(60, 0)), opts)
	if err != nil {
		t.Fatalf("first Compute failed: %v", err)
	}
	b, _, err := Compute(context.Background(), video.NewSliceSource(syntheticClip(60, 0)), opts)
	if err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}

	if a.BitString() != b.BitString() {
		t.Error("fingerprinting the same clip twice produced different bits")
	}
	if a.Len() != 256 {
		t.Errorf("fingerprint length = %d; want 256", a.Len())
	}
}

func TestComputeSeparatesPerturbedFromUnrelated(t *testing.T) {
	opts := Options{Params: Params{Seed: 42, Bits: 256}, MaxFrames: 60, Workers: 4}
	ctx := context.Background()

	original, _, err := Compute(ctx, video.NewSliceSource(syntheticClip(60, 0)), opts)
	if err != nil {
		t.Fatalf("Compute original failed: %v", err)
	}
	// Light pixel noise stands in for mild lossy recompression.
	perturbed, _, err := Compute(ctx, video.NewSliceSource(perturbClip(syntheticClip(60, 0), 2, 99)), opts)
	if err != nil {
		t.Fatalf("Compute perturbed failed: %v", err)
	}
	unrelated, _, err := Compute(ctx, video.NewSliceSource(noiseClip(60, 1234)), opts)
	if err != nil {
		t.Fatalf("Compute unrelated failed: %v", err)
	}

	near, err := original.Distance(perturbed)
	if err != nil {
		t.Fatalf("distance to perturbed failed: %v", err)
	}
	far, err := original.Distance(unrelated)
	if err != nil {
		t.Fatalf("distance to unrelated failed: %v", err)
	}

	if near >= far {
		t.Errorf("perturbed distance (%d) should be below unrelated distance (%d)", near, far)
	}
	if near >= 64 {
		t.Errorf("perturbed distance = %d; want well below 64", near)
	}
	if far <= 64 {
		t.Errorf("unrelated distance = %d; want well above 64", far)
	}
}

func TestComputeEmptySource(t *testing.T) {
	opts := Options{Params: Params{Seed: 42, Bits: 256}}
	_, _, err := Compute(context.Background(), video.NewSliceSource(nil), opts)
	if !errors.Is(err, video.ErrInsufficientInput) {
		t.Errorf("expected ErrInsufficientInput, got %v", err)
	}
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{Params: Params{Seed: 42, Bits: 256}, MaxFrames: 10}
	_, _, err := Compute(ctx, video.NewSliceSource(syntheticClip(10, 0)), opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// Synthetic clip helpers.

// syntheticClip renders a clip of drifting gradients with a moving bright
// square, giving every frame stable edge, texture and color structure.
func syntheticClip(frames int, phase int) []image.Image {
	clip := make([]image.Image, frames)
	for f := range clip {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for x := 0; x < 64; x++ {
			for y := 0; y < 64; y++ {
				r := uint8((x*4 + f + phase) % 256)
				g := uint8((y * 4) % 256)
				img.Set(x, y, color.RGBA{r, g, 64, 255})
			}
		}
		// Moving square.
		sx := (f + phase) % 48
		for x := sx; x < sx+16; x++ {
			for y := 24; y < 40; y++ {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
		clip[f] = img
	}
	return clip
}

// perturbClip adds bounded uniform pixel noise to every frame.
func perturbClip(clip []image.Image, amplitude int, seed int64) []image.Image {
	rng := rand.New(rand.NewSource(seed))
	out := make([]image.Image, len(clip))
	for i, frame := range clip {
		bounds := frame.Bounds()
		img := image.NewRGBA(bounds)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
				r, g, b, _ := frame.At(x, y).RGBA()
				img.Set(x, y, color.RGBA{
					jitter(uint8(r>>8), amplitude, rng),
					jitter(uint8(g>>8), amplitude, rng),
					jitter(uint8(b>>8), amplitude, rng),
					255,
				})
			}
		}
		out[i] = img
	}
	return out
}

func jitter(v uint8, amplitude int, rng *rand.Rand) uint8 {
	n := int(v) + rng.Intn(2*amplitude+1) - amplitude
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	return uint8(n)
}

func noiseClip(frames int, seed int64) []image.Image {
	rng := rand.New(rand.NewSource(seed))
	clip := make([]image.Image, frames)
	for f := range clip {
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for x := 0; x < 64; x++ {
			for y := 0; y < 64; y++ {
				img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
			}
		}
		clip[f] = img
	}
	return clip
}

func unitVector(dim int, variant int) []float64 {
	v := make([]float64, dim)
	var sumSquares float64
	for i := range v {
		v[i] = math.Sin(float64(i*variant + 1))
		sumSquares += v[i] * v[i]
	}
	norm := math.Sqrt(sumSquares)
	for i := range v {
		v[i] /= norm
	}
	return v
}
