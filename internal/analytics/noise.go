package analytics

import "math/rand"

// Noise abstracts the jitter strategy used by forecasting and financial
// estimation. The legacy dashboard injected unseeded randomness into both;
// here the strategy is explicit so outputs stay reproducible under test.
type Noise interface {
	// Jitter returns a value in [-scale, scale].
	Jitter(scale float64) float64
}

// NoNoise disables jitter entirely. This is the default.
type NoNoise struct{}

// Jitter always returns 0.
func (NoNoise) Jitter(float64) float64 { return 0 }

// SeededNoise produces reproducible jitter from a fixed seed.
type SeededNoise struct {
	rng *rand.Rand
}

// NewSeededNoise builds a seeded jitter source.
func NewSeededNoise(seed int64) *SeededNoise {
	return &SeededNoise{rng: rand.New(rand.NewSource(seed))}
}

// Jitter returns a uniform value in [-scale, scale].
func (n *SeededNoise) Jitter(scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return (n.rng.Float64()*2 - 1) * scale
}
