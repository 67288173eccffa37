package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// GeneratorVersion identifies the deterministic pseudo-random generator used
// to build projection matrices. It is persisted alongside seed and bit length
// so future readers know which generator produced a stored fingerprint.
const GeneratorVersion = "go1.rand.v1"

var (
	// ErrIncompatible is returned when two fingerprints produced under
	// different seeds or bit lengths meet. Their distance is meaningless and
	// must never be reported as a number.
	ErrIncompatible = errors.New("fingerprint: fingerprints use different seed or length")

	// ErrDegenerateInput is returned when the aggregate feature vector
	// carries no signal (near-zero norm), e.g. for blank clips.
	ErrDegenerateInput = errors.New("fingerprint: aggregate feature vector has no signal")

	// ErrNoFeatures is returned when aggregation receives zero vectors.
	ErrNoFeatures = errors.New("fingerprint: no feature vectors to aggregate")
)

// Params pins the configuration a fingerprint was produced under. Two
// fingerprints are comparable only when their Params are equal.
type Params struct {
	Seed int64
	Bits int
}

// Fingerprint is a fixed-length binary fingerprint of one video. Bits are
// packed MSB-first: bit 0 is the high bit of the first byte, matching the
// textual binary and hex encodings.
type Fingerprint struct {
	params Params
	packed []byte
}

// New creates a fingerprint from packed bytes. The slice is copied.
func New(params Params, packed []byte) (*Fingerprint, error) {
	if params.Bits <= 0 || params.Bits%8 != 0 {
		return nil, fmt.Errorf("fingerprint length must be a positive multiple of 8, got %d", params.Bits)
	}
	if len(packed) != params.Bits/8 {
		return nil, fmt.Errorf("expected %d packed bytes for %d bits, got %d", params.Bits/8, params.Bits, len(packed))
	}
	b := make([]byte, len(packed))
	copy(b, packed)
	return &Fingerprint{params: params, packed: b}, nil
}

// Params returns the configuration the fingerprint was produced under.
func (f *Fingerprint) Params() Params {
	return f.params
}

// Len returns the fingerprint length in bits.
func (f *Fingerprint) Len() int {
	return f.params.Bits
}

// Bytes returns a copy of the packed bit vector.
func (f *Fingerprint) Bytes() []byte {
	b := make([]byte, len(f.packed))
	copy(b, f.packed)
	return b
}

// Bit reports whether bit i is set.
func (f *Fingerprint) Bit(i int) bool {
	return f.packed[i/8]&(0x80>>(i%8)) != 0
}

// BitCount returns the number of set bits.
func (f *Fingerprint) BitCount() int {
	count := 0
	for _, b := range f.packed {
		count += bits.OnesCount8(b)
	}
	return count
}

// BitString renders the fingerprint as a string of 0s and 1s.
func (f *Fingerprint) BitString() string {
	var sb strings.Builder
	sb.Grow(f.params.Bits)
	for i := 0; i < f.params.Bits; i++ {
		if f.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Hex renders the fingerprint as lowercase hex (bits/4 characters).
func (f *Fingerprint) Hex() string {
	return hex.EncodeToString(f.packed)
}

// Distance returns the Hamming distance to another fingerprint. Both must
// share seed and length; otherwise it fails with ErrIncompatible.
func (f *Fingerprint) Distance(other *Fingerprint) (int, error) {
	if other == nil || f.params != other.params {
		return 0, ErrIncompatible
	}
	distance := 0
	for i := range f.packed {
		distance += bits.OnesCount8(f.packed[i] ^ other.packed[i])
	}
	return distance, nil
}

// Matches reports whether the Hamming distance to other is strictly below
// threshold.
func (f *Fingerprint) Matches(other *Fingerprint, threshold int) (bool, error) {
	distance, err := f.Distance(other)
	if err != nil {
		return false, err
	}
	return distance < threshold, nil
}

// Similarity converts a Hamming distance into a percentage for display:
// 100 at distance 0, 0 at the maximum distance.
func Similarity(distance, hashBits int) float64 {
	return 100 * (1 - float64(distance)/float64(hashBits))
}

// Parse reads a fingerprint from its binary or hex text form. A string of
// exactly params.Bits 0/1 characters is binary; one of params.Bits/4 hex
// digits is hex.
func Parse(s string, params Params) (*Fingerprint, error) {
	s = strings.TrimSpace(s)
	if params.Bits <= 0 || params.Bits%8 != 0 {
		return nil, fmt.Errorf("fingerprint length must be a positive multiple of 8, got %d", params.Bits)
	}

	switch len(s) {
	case params.Bits:
		packed := make([]byte, params.Bits/8)
		for i, c := range s {
			switch c {
			case '1':
				packed[i/8] |= 0x80 >> (i % 8)
			case '0':
			default:
				return nil, fmt.Errorf("invalid character %q in binary fingerprint", c)
			}
		}
		return New(params, packed)
	case params.Bits / 4:
		packed, err := hex.DecodeString(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("invalid hex fingerprint: %w", err)
		}
		return New(params, packed)
	default:
		return nil, fmt.Errorf("fingerprint text must be %d binary or %d hex characters, got %d",
			params.Bits, params.Bits/4, len(s))
	}
}
