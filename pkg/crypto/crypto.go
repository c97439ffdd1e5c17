package crypto

import (
	"crypto/rand"
	"math/big"
)

const float64Precision = 1 << 53

// RandIntn returns a uniform random value in [0, n). It panics if got a
// non-positive parameter.
func RandIntn(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int(r.Int64())
}

// RandRange returns a uniform random value in [a, b]. It panics if a > b.
func RandRange(a, b int) int {
	if a > b {
		panic("invalid range")
	}

	return RandIntn(b-a+1) + a
}

// RandFloat64 returns a uniform random value in [0, 1).
func RandFloat64() float64 {
	return float64(RandIntn(float64Precision)) / float64Precision
}
