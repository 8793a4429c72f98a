package cpm

import "math/rand"

// Sampler is the sole source of randomness consumed by the core. Nothing in
// this module calls math/rand directly outside of this file — swapping the
// Sampler implementation is enough to make the whole engine deterministic
// under a fixed seed, or to replace it with a recorded/replayed stream in
// tests.
type Sampler interface {
	// UInt returns a uniform random integer in [lo, hi], inclusive.
	UInt(lo, hi int) int
	// UProb returns a uniform random float in [0, 1).
	UProb() float64
	// Normal returns a draw from a normal distribution with mean mu and
	// standard deviation sigma.
	Normal(mu, sigma float64) float64
}

// RandSampler is a Sampler backed by math/rand, seeded once at construction.
type RandSampler struct {
	rng *rand.Rand
}

// NewRandSampler seeds a new RandSampler. The same seed always produces the
// same sequence of draws, which is what makes a fixed-seed run
// reproducible end to end.
func NewRandSampler(seed int64) *RandSampler {
	return &RandSampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandSampler) UInt(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

func (s *RandSampler) UProb() float64 {
	return s.rng.Float64()
}

func (s *RandSampler) Normal(mu, sigma float64) float64 {
	return mu + sigma*s.rng.NormFloat64()
}
