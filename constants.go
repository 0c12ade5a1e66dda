package sortnet

import (
	"math/rand"
	"time"

	"nickandperla.net/sortnet/network"
)

// Source is the explicit pseudorandom source threaded through the
// generator, mutation operator, samplers and selection.
type Source = network.Source

// ResolveSeed returns seed, or the current time when seed is 0.
func ResolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// NewRand returns a source seeded with seed. A seed of 0 uses the current
// time (non-deterministic); any other seed gives reproducible runs.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(ResolveSeed(seed)))
}

const (
	DEBUG = false

	ModeEvolve   = "evolve"
	ModeCoevolve = "coevolve"

	DefaultSampleCount        = 1000
	DefaultValueRange         = 100
	DefaultMaxExhaustiveWidth = 20
	MaxExhaustiveWidthCeiling = 24
	DefaultVerifySamples      = 100000

	DefaultParasiteCount     = 256
	DefaultParasiteMutation  = 0.1
	DefaultImmigrantFraction = 0.1
)
