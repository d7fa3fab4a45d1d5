package session

import (
	"fmt"
	"math"
)

// SoundnessError returns the probability that a prover without the secrets
// passes rounds independent rounds of k challenge bits each: 2^-(k·rounds).
func SoundnessError(k, rounds int) float64 {
	if k <= 0 || rounds <= 0 {
		return 1
	}
	return math.Pow(2, -float64(k)*float64(rounds))
}

// RoundsFor returns the smallest number of rounds whose soundness error is
// at most 2^-securityBits when every round carries k challenge bits.
func RoundsFor(k, securityBits int) (int, error) {
	if k <= 0 {
		return 0, fmt.Errorf("session: k must be positive to reach %d bits, got %d", securityBits, k)
	}
	if securityBits <= 0 {
		return 1, nil
	}
	return (securityBits + k - 1) / k, nil
}
