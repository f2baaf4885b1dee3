package engine

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking so that a
// saved world can resume the same sequence of choices.
type RNG struct {
	seed int64
	src  *countingSource
	rnd  *rand.Rand
}

// countingSource counts every value drawn from the underlying source, so
// the position is exact even when Intn rejects and redraws.
type countingSource struct {
	rand.Source
	n int64
}

func (s *countingSource) Int63() int64 {
	s.n++
	return s.Source.Int63()
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	src := &countingSource{Source: rand.NewSource(seed)}
	return &RNG{
		seed: seed,
		src:  src,
		rnd:  rand.New(src),
	}
}

// Intn returns a random integer in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	return r.rnd.Intn(n)
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of values drawn from the source.
func (r *RNG) Position() int64 {
	return r.src.n
}

// RestoreRNG creates an RNG and advances it to the given position.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for rng.src.n < position {
		rng.src.Int63()
	}
	return rng
}
