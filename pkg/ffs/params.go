package ffs

import "fmt"

// Params are the security parameters shared by both participants of a
// session.
type Params struct {
	// K is the number of secrets and the challenge length. K = 0 is allowed
	// and yields a proof that carries no information.
	K int

	// L is the bit length of the per-round randomness r. Only the prover
	// uses it.
	L int
}

// Validate checks both parameters as the prover needs them.
func (p Params) Validate() error {
	if err := p.validateK(); err != nil {
		return err
	}
	if p.L < 1 {
		return fmt.Errorf("%w: L must be positive, got %d", ErrInvalidParams, p.L)
	}
	return nil
}

func (p Params) validateK() error {
	if p.K < 0 {
		return fmt.Errorf("%w: K must not be negative, got %d", ErrInvalidParams, p.K)
	}
	return nil
}
