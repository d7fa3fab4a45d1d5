package ffs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams indicates security parameters out of range.
	ErrInvalidParams = errors.New("ffs: invalid parameters")

	// ErrInvalidModulus indicates a nil modulus or one not greater than 1.
	ErrInvalidModulus = errors.New("ffs: invalid modulus")

	// ErrSecretsLength indicates a secret vector whose length is not k.
	ErrSecretsLength = errors.New("ffs: secret vector length mismatch")

	// ErrNotInvertible indicates a secret that is not a unit modulo n.
	ErrNotInvertible = errors.New("ffs: secret not invertible modulo n")

	// ErrChallengeLength indicates a challenge whose length is not k.
	ErrChallengeLength = errors.New("ffs: challenge length mismatch")

	// ErrPublicKeysLength indicates a public-key vector whose length is not k+1.
	ErrPublicKeysLength = errors.New("ffs: public key vector length mismatch")

	// ErrModulusMismatch indicates public keys for a modulus other than the expected one.
	ErrModulusMismatch = errors.New("ffs: unexpected modulus")

	// ErrNilValue indicates a nil protocol value.
	ErrNilValue = errors.New("ffs: nil value")

	// ErrOutOfOrder indicates an operation called in the wrong protocol state.
	ErrOutOfOrder = errors.New("ffs: operation out of order")

	// ErrDestroyed indicates use of a prover after Destroy.
	ErrDestroyed = errors.New("ffs: prover destroyed")

	// ErrRandomSource indicates the random source failed.
	ErrRandomSource = errors.New("ffs: random source failure")
)

// StateError reports an operation rejected by the state machine.
type StateError struct {
	Op    string       // Operation that was attempted
	State fmt.Stringer // State the participant was in
}

func (e *StateError) Error() string {
	return fmt.Sprintf("ffs.%s: %v (state %s)", e.Op, ErrOutOfOrder, e.State)
}

// Unwrap lets errors.Is match ErrOutOfOrder.
func (e *StateError) Unwrap() error {
	return ErrOutOfOrder
}
