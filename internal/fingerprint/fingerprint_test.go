package fingerprint

import (
	"errors"
	"testing"
)

func TestParseBinaryRoundTrip(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	fp := testFingerprint(t, params, 3)

	parsed, err := Parse(fp.BitString(), params)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d, err := fp.Distance(parsed); err != nil || d != 0 {
		t.Errorf("binary round trip distance = %d, err = %v; want 0, nil", d, err)
	}
}

func TestParseHexRoundTrip(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	fp := testFingerprint(t, params, 5)

	hexStr := fp.Hex()
	if len(hexStr) != 64 {
		t.Fatalf("hex length = %d; want 64", len(hexStr))
	}
	parsed, err := Parse(hexStr, params)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if d, err := fp.Distance(parsed); err != nil || d != 0 {
		t.Errorf("hex round trip distance = %d, err = %v; want 0, nil", d, err)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	tests := []struct {
		name string
		in   string
	}{
		{"wrong length", "0101"},
		{"bad binary digit", string(make([]byte, 256))},
		{"bad hex digit", "zz" + testFingerprint(t, params, 1).Hex()[2:]},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.in, params); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestDistanceProperties(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	a := testFingerprint(t, params, 1)
	b := testFingerprint(t, params, 2)
	c := testFingerprint(t, params, 3)

	if d, err := a.Distance(a); err != nil || d != 0 {
		t.Errorf("distance(a,a) = %d, err = %v; want 0, nil", d, err)
	}

	ab, err := a.Distance(b)
	if err != nil {
		t.Fatalf("distance(a,b) failed: %v", err)
	}
	ba, err := b.Distance(a)
	if err != nil {
		t.Fatalf("distance(b,a) failed: %v", err)
	}
	if ab != ba {
		t.Errorf("distance not symmetric: %d vs %d", ab, ba)
	}
	if ab < 0 || ab > 256 {
		t.Errorf("distance(a,b) = %d; want within [0, 256]", ab)
	}

	ac, _ := a.Distance(c)
	bc, _ := b.Distance(c)
	if ac > ab+bc {
		t.Errorf("triangle inequality violated: d(a,c)=%d > d(a,b)+d(b,c)=%d", ac, ab+bc)
	}
}

func TestDistanceIncompatibleSeeds(t *testing.T) {
	a := testFingerprint(t, Params{Seed: 42, Bits: 256}, 1)
	b := testFingerprint(t, Params{Seed: 43, Bits: 256}, 1)

	if _, err := a.Distance(b); !errors.Is(err, ErrIncompatible) {
		t.Errorf("expected ErrIncompatible for mismatched seeds, got %v", err)
	}
	if _, err := a.Matches(b, 30); !errors.Is(err, ErrIncompatible) {
		t.Errorf("Matches should propagate ErrIncompatible, got %v", err)
	}
}

func TestDistanceIncompatibleLengths(t *testing.T) {
	a := testFingerprint(t, Params{Seed: 42, Bits: 256}, 1)
	b := testFingerprint(t, Params{Seed: 42, Bits: 128}, 1)

	if _, err := a.Distance(b); !errors.Is(err, ErrIncompatible) {
		t.Errorf("expected ErrIncompatible for mismatched lengths, got %v", err)
	}
}

func TestMatchesThresholdIsStrict(t *testing.T) {
	params := Params{Seed: 42, Bits: 256}
	a := testFingerprint(t, params, 1)
	b := testFingerprint(t, params, 2)

	d, err := a.Distance(b)
	if err != nil {
		t.Fatalf("distance failed: %v", err)
	}

	if ok, _ := a.Matches(b, d); ok {
		t.Errorf("distance %d must not match at threshold %d (strict less-than)", d, d)
	}
	if ok, _ := a.Matches(b, d+1); !ok {
		t.Errorf("distance %d should match at threshold %d", d, d+1)
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity(0, 256); got != 100 {
		t.Errorf("Similarity(0, 256) = %f; want 100", got)
	}
	if got := Similarity(256, 256); got != 0 {
		t.Errorf("Similarity(256, 256) = %f; want 0", got)
	}
	if got := Similarity(64, 256); got != 75 {
		t.Errorf("Similarity(64, 256) = %f; want 75", got)
	}
}

// testFingerprint projects a deterministic synthetic aggregate so tests can
// build comparable fingerprints without images.
func testFingerprint(t *testing.T, params Params, variant int) *Fingerprint {
	t.Helper()
	vec := make([]float64, 64)
	for i := range vec {
		vec[i] = float64((i*7+variant*13)%31) / 31
	}
	agg, err := Aggregate([][]float64{vec})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	fp, err := Project(agg, params)
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	return fp
}
