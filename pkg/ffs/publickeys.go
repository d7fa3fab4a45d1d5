package ffs

import (
	"fmt"
	"math/big"

	"github.com/hsiuhsiu/ffs-go/internal/modarith"
)

// PublicKeys is the public half of a prover's identity: the modulus N and
// V[i] = s[i]^-2 mod N.
type PublicKeys struct {
	N *big.Int
	V []*big.Int
}

// K returns the number of public keys.
func (pk PublicKeys) K() int { return len(pk.V) }

// Vector returns the exchanged form of the keys: N followed by V, k+1
// elements. The result is a deep copy.
func (pk PublicKeys) Vector() []*big.Int {
	out := make([]*big.Int, 0, len(pk.V)+1)
	if pk.N != nil {
		out = append(out, new(big.Int).Set(pk.N))
	}
	for _, v := range pk.V {
		out = append(out, new(big.Int).Set(v))
	}
	return out
}

// Clone returns a deep copy of pk.
func (pk PublicKeys) Clone() PublicKeys {
	out := PublicKeys{V: make([]*big.Int, len(pk.V))}
	if pk.N != nil {
		out.N = new(big.Int).Set(pk.N)
	}
	for i, v := range pk.V {
		out.V[i] = new(big.Int).Set(v)
	}
	return out
}

// ParsePublicKeys splits an exchanged vector into modulus and keys. It
// requires exactly k+1 elements, none nil, and a modulus greater than 1. Keys
// are copied and reduced modulo N.
func ParsePublicKeys(vec []*big.Int, k int) (PublicKeys, error) {
	if len(vec) != k+1 {
		return PublicKeys{}, fmt.Errorf("%w: got %d elements, want %d", ErrPublicKeysLength, len(vec), k+1)
	}
	for i, v := range vec {
		if v == nil {
			return PublicKeys{}, fmt.Errorf("%w: public key element %d", ErrNilValue, i)
		}
	}
	n := vec[0]
	if n.Cmp(big.NewInt(1)) <= 0 {
		return PublicKeys{}, ErrInvalidModulus
	}
	pk := PublicKeys{N: new(big.Int).Set(n), V: make([]*big.Int, k)}
	for i := range pk.V {
		pk.V[i] = modarith.Mod(vec[i+1], n)
	}
	return pk, nil
}
