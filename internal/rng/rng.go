// Package rng provides the deterministic pseudo-random source behind all
// trial generation. Given the same seed and the same ordered call sequence
// it reproduces the same outputs on every platform and every run; that is
// the load-bearing invariant for reproducible research trials.
package rng

import "math"

// Numerical Recipes LCG constants, 32-bit state.
const (
	lcgMultiplier uint64 = 1664525
	lcgIncrement  uint64 = 1013904223
	lcgModulus    uint64 = 1 << 32
)

// Rand is a seeded linear-congruential generator. Cryptographic strength is
// explicitly not a goal.
type Rand struct {
	state    uint64
	spare    float64
	hasSpare bool
}

// New returns a generator seeded with the given non-negative seed.
func New(seed int64) *Rand {
	return &Rand{state: uint64(seed) % lcgModulus}
}

// Next returns the next draw in [0, 1).
func (r *Rand) Next() float64 {
	r.state = (r.state*lcgMultiplier + lcgIncrement) % lcgModulus
	return float64(r.state) / float64(lcgModulus)
}

// IntBetween returns an integer in [min, max], inclusive on both ends.
func (r *Rand) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + int(r.Next()*float64(max-min+1))
}

// Bool returns true with probability p.
func (r *Rand) Bool(p float64) bool {
	return r.Next() < p
}

// Gaussian returns a normally distributed draw via the Box-Muller
// transform. The second value of each pair is cached for the next call.
func (r *Rand) Gaussian(mean, stddev float64) float64 {
	if r.hasSpare {
		r.hasSpare = false
		return mean + stddev*r.spare
	}
	var u, v float64
	for {
		u = r.Next()
		if u > 0 {
			break
		}
	}
	v = r.Next()
	mag := math.Sqrt(-2 * math.Log(u))
	r.spare = mag * math.Sin(2*math.Pi*v)
	r.hasSpare = true
	return mean + stddev*mag*math.Cos(2*math.Pi*v)
}

// Shuffle returns a new slice with the items in permuted order. The input
// is never mutated.
func Shuffle[T any](r *Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntBetween(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pick returns a uniformly chosen element. Panics on an empty slice, which
// is a generator bug, not a runtime condition.
func Pick[T any](r *Rand, items []T) T {
	return items[r.IntBetween(0, len(items)-1)]
}
