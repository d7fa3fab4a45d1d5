// Package modarith holds the modular arithmetic shared by the prover and the
// verifier. Every result is a fresh *big.Int reduced into the canonical range
// [0, n); inputs are never modified.
package modarith

import (
	"errors"
	"fmt"
	"io"
	"math/big"
)

// ErrNotUnit is returned when a value has no inverse modulo n.
var ErrNotUnit = errors.New("modarith: value is not invertible modulo n")

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// Mod returns x mod n in [0, n). big.Int.Mod already implements Euclidean
// modulus, so negative inputs land in range as well.
func Mod(x, n *big.Int) *big.Int {
	return new(big.Int).Mod(x, n)
}

// MulMod returns a*b mod n.
func MulMod(a, b, n *big.Int) *big.Int {
	z := new(big.Int).Mul(a, b)
	return z.Mod(z, n)
}

// SquareMod returns x^2 mod n.
func SquareMod(x, n *big.Int) *big.Int {
	return new(big.Int).Exp(Mod(x, n), two, n)
}

// NegMod returns -x mod n in [0, n).
func NegMod(x, n *big.Int) *big.Int {
	z := Mod(x, n)
	if z.Sign() == 0 {
		return z
	}
	return z.Sub(n, z)
}

// IsUnit reports whether x is invertible modulo n.
func IsUnit(x, n *big.Int) bool {
	if x == nil || n == nil || n.Cmp(one) <= 0 {
		return false
	}
	r := Mod(x, n)
	if r.Sign() == 0 {
		return false
	}
	return new(big.Int).GCD(nil, nil, r, n).Cmp(one) == 0
}

// InverseSquare returns s^-2 mod n.
func InverseSquare(s, n *big.Int) (*big.Int, error) {
	if !IsUnit(s, n) {
		return nil, ErrNotUnit
	}
	inv := new(big.Int).ModInverse(Mod(s, n), n)
	if inv == nil {
		return nil, ErrNotUnit
	}
	return SquareMod(inv, n), nil
}

// RandBelowPow2 draws a uniform integer in [0, 2^bits) from rand.
func RandBelowPow2(rand io.Reader, bits int) (*big.Int, error) {
	if bits < 1 {
		return nil, fmt.Errorf("modarith: bit length must be positive, got %d", bits)
	}
	buf := make([]byte, (bits+7)/8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, fmt.Errorf("modarith: read randomness: %w", err)
	}
	// Mask the excess high bits of the leading byte.
	if extra := len(buf)*8 - bits; extra > 0 {
		buf[0] &= byte(0xff >> extra)
	}
	z := new(big.Int).SetBytes(buf)
	clear(buf)
	return z, nil
}

// RandBits draws k independent uniform bits from rand.
func RandBits(rand io.Reader, k int) ([]bool, error) {
	if k < 0 {
		return nil, fmt.Errorf("modarith: negative bit count %d", k)
	}
	out := make([]bool, k)
	if k == 0 {
		return out, nil
	}
	buf := make([]byte, (k+7)/8)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, fmt.Errorf("modarith: read randomness: %w", err)
	}
	for i := range out {
		out[i] = buf[i/8]>>(uint(i)%8)&1 == 1
	}
	return out, nil
}
