package sim

import (
	"math/rand/v2"
)

// Source supplies standard normal variates.
// *rand.Rand from math/rand and math/rand/v2 both satisfy it.
type Source interface {
	NormFloat64() float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource makes every run draw from a generator returned by fn. The
// stream passed to [Engine.RunStream] is ignored.
func WithSource(fn func() Source) Option {
	return func(e *Engine) {
		e.sourceFor = func(uint64) Source { return fn() }
	}
}

// WithSeed makes runs reproducible. A run on stream s draws from the PCG
// generator (seed, s); [Engine.Run] uses streams 0, 1, 2, ... in call order.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.sourceFor = func(stream uint64) Source {
			return rand.New(rand.NewPCG(seed, stream))
		}
	}
}

func freshSource(uint64) Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
