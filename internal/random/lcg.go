// Package random provides the deterministic random source that drives every
// simulation draw.
//
// A run owns exactly one Source. All draws are taken from it in a fixed order,
// so the same seed always reproduces the same run. Sources are not safe for
// concurrent use.
package random

// LCG multiplier and increment. The modulus is 2^32, applied by uint32 wraparound.
const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	lcgModulus    = 1 << 32
)

// Source produces uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// LCG is a 32-bit linear congruential generator:
//
//	state = (1664525*state + 1013904223) mod 2^32
//	draw  = state / 2^32
type LCG struct {
	state uint32
}

// NewLCG returns a generator seeded with seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// Float64 advances the generator and returns the next draw in [0, 1).
func (g *LCG) Float64() float64 {
	g.state = lcgMultiplier*g.state + lcgIncrement
	return float64(g.state) / lcgModulus
}

// State returns the current generator state.
func (g *LCG) State() uint32 {
	return g.state
}

// Uniform returns a draw in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Intn returns a draw in [0, n). n must be positive.
func Intn(src Source, n int) int {
	i := int(src.Float64() * float64(n))
	if i >= n {
		// Guards against float rounding at the top of the range.
		i = n - 1
	}
	return i
}
