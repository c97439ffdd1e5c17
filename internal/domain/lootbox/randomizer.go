package lootbox

import "github.com/lootbox-lab/backend/pkg/crypto"

// Randomizer is the source of randomness for box outcomes. The production
// implementation is backed by crypto/rand; tests inject a scripted one.
type Randomizer interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64

	// Range returns a uniform value in [min, max].
	Range(min, max int64) int64
}

type cryptoRandomizer struct{}

func NewCryptoRandomizer() Randomizer {
	return cryptoRandomizer{}
}

func (cryptoRandomizer) Float64() float64 {
	return crypto.RandFloat64()
}

func (cryptoRandomizer) Range(min, max int64) int64 {
	return int64(crypto.RandRange(int(min), int(max)))
}
