// Package crand exposes a seeded pool through the math/rand API, for callers
// that want Intn, Shuffle and friends backed by strong output.
//
//	r := crand.New(p)
//	r.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
//
// The generator must already be seeded: math/rand has no error path, so a
// generator failure panics.
package crand

import (
	"encoding/binary"
	"math/rand"

	"pkt.systems/entropool/pool"
)

// Source implements rand.Source64 over a StrongGenerator. It is safe for
// concurrent use when the generator is.
type Source struct {
	g pool.StrongGenerator
}

var _ rand.Source64 = Source{}

// NewSource wraps g.
func NewSource(g pool.StrongGenerator) Source {
	return Source{g: g}
}

// New returns a *rand.Rand drawing from g.
func New(g pool.StrongGenerator) *rand.Rand {
	return rand.New(NewSource(g))
}

// Seed is a no-op; entropy comes from the generator.
func (Source) Seed(int64) {}

// Int63 returns a non-negative 63-bit integer.
func (s Source) Int63() int64 {
	return int64(s.Uint64() &^ (1 << 63))
}

// Uint64 returns 64 random bits. It panics if the generator fails.
func (s Source) Uint64() uint64 {
	b, err := s.g.RandomBytes(8)
	if err != nil {
		panic(err)
	}
	return binary.BigEndian.Uint64(b)
}

// Read fills p from the generator.
func (s Source) Read(p []byte) (int, error) {
	b, err := s.g.RandomBytes(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, b), nil
}
