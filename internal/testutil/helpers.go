package testutil

import (
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestRNG creates a deterministic random number generator for tests
func NewTestRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// NopLogger returns a no-op logger for tests
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// FixedRNG replays a fixed sequence of draws, repeating the last one when
// the sequence runs out.
type FixedRNG struct {
	Draws []float64
	next  int
}

// NewFixedRNG returns a FixedRNG over draws. With no draws it always returns 0.
func NewFixedRNG(draws ...float64) *FixedRNG {
	return &FixedRNG{Draws: draws}
}

func (r *FixedRNG) Float64() float64 {
	if len(r.Draws) == 0 {
		return 0
	}
	if r.next >= len(r.Draws) {
		return r.Draws[len(r.Draws)-1]
	}
	v := r.Draws[r.next]
	r.next++
	return v
}

// Calls reports how many draws were consumed from the sequence.
func (r *FixedRNG) Calls() int { return r.next }

// AssertPanic asserts that the given function panics
func AssertPanic(t *testing.T, f func(), msgAndArgs ...interface{}) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic but none occurred: %v", msgAndArgs)
		}
	}()
	f()
}
