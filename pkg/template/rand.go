package template

import (
	mathrand "math/rand"

	"github.com/google/uuid"
)

// rngIntN returns a random int in [0, n) using the provided RNG if non-nil,
// otherwise falls back to the global math/rand source.
func rngIntN(rng *mathrand.Rand, n int) int {
	if n <= 0 {
		return 0
	}
	if rng != nil {
		return rng.Intn(n)
	}
	return mathrand.Intn(n)
}

// rngFloat64 returns a random float64 in [0, 1) using the provided RNG if non-nil,
// otherwise falls back to the global math/rand source.
func rngFloat64(rng *mathrand.Rand) float64 {
	if rng != nil {
		return rng.Float64()
	}
	return mathrand.Float64()
}

// rngUUID generates a UUID v4 string. A seeded rng makes fixture data
// reproducible across runs; a nil rng draws from crypto/rand via
// uuid.NewString for true randomness.
func rngUUID(rng *mathrand.Rand) string {
	if rng == nil {
		return uuid.NewString()
	}
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	id, err := uuid.FromBytes(b[:])
	if err != nil {
		return uuid.NewString()
	}
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}

// ctxRNG extracts the seeded RNG from a Context, or returns nil (use global).
func ctxRNG(ctx *Context) *mathrand.Rand {
	if ctx == nil {
		return nil
	}
	return ctx.Rand
}
