package ffs

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"github.com/hsiuhsiu/ffs-go/internal/modarith"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
)

// Prover holds k secrets and proves knowledge of them round by round.
//
// A Prover is not safe for concurrent use: the randomness of a commitment
// occupies a single slot until the matching Respond.
type Prover struct {
	params Params
	n      *big.Int
	s      []*big.Int
	pub    *PublicKeys

	rand      io.Reader
	logger    logging.Logger
	freshSign bool
	positive  bool

	r     *big.Int
	state ProverState
	round int
}

// NewProver creates a prover for modulus n and secrets s. Every secret must be
// invertible modulo n; the check happens here so that no later call works on
// meaningless arithmetic. The secrets are copied.
func NewProver(n *big.Int, secrets []*big.Int, params Params, opts ...Option) (*Prover, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n == nil || n.Cmp(big.NewInt(1)) <= 0 {
		return nil, ErrInvalidModulus
	}
	if len(secrets) != params.K {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSecretsLength, len(secrets), params.K)
	}
	s := make([]*big.Int, len(secrets))
	pub := PublicKeys{N: new(big.Int).Set(n), V: make([]*big.Int, len(secrets))}
	for i, secret := range secrets {
		if secret == nil {
			return nil, fmt.Errorf("%w: secret %d", ErrNilValue, i)
		}
		v, err := modarith.InverseSquare(secret, n)
		if err != nil {
			return nil, fmt.Errorf("%w: secret %d", ErrNotInvertible, i)
		}
		s[i] = modarith.Mod(secret, n)
		pub.V[i] = v
	}

	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	p := &Prover{
		params:    params,
		n:         new(big.Int).Set(n),
		s:         s,
		pub:       &pub,
		rand:      o.rand,
		logger:    o.logger.With("component", "ffs.prover"),
		freshSign: o.freshSign,
	}
	if err := p.drawSign(); err != nil {
		return nil, err
	}
	return p, nil
}

// Params returns the security parameters.
func (p *Prover) Params() Params { return p.params }

// State returns the current protocol state.
func (p *Prover) State() ProverState { return p.state }

// Round returns the number of commitments made so far.
func (p *Prover) Round() int { return p.round }

// PublicKeys returns the public-key vector: n and s[i]^-2 mod n for every
// secret, derived once in NewProver. It does not consume randomness. The
// first call moves the prover from idle to keys-published; later calls,
// including after Destroy, return the same k+1 values without touching the
// state.
func (p *Prover) PublicKeys() PublicKeys {
	if p.state == ProverIdle {
		p.state = ProverKeysPublished
		p.logger.Debug(context.Background(), "public keys derived", "k", p.params.K)
	}
	return p.pub.Clone()
}

// Commit starts a round. It draws fresh r in [0, 2^L) and returns
// x = r² mod n, or -r² mod n when the sign bit is negative, in [0, n).
//
// Commit is allowed once the public keys are published. Calling it while a
// commitment is still unanswered abandons that round and discards its r.
func (p *Prover) Commit() (*big.Int, error) {
	switch p.state {
	case ProverKeysPublished, ProverCommitted, ProverResponded:
	case ProverDestroyed:
		return nil, ErrDestroyed
	default:
		return nil, &StateError{Op: "Commit", State: p.state}
	}

	if p.state == ProverCommitted {
		p.logger.Warn(context.Background(), "round abandoned before response", "round", p.round)
	}
	if p.freshSign {
		if err := p.drawSign(); err != nil {
			return nil, err
		}
	}
	r, err := modarith.RandBelowPow2(p.rand, p.params.L)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	zeroizeInt(p.r)
	p.r = r

	x := modarith.SquareMod(r, p.n)
	if !p.positive {
		x = modarith.NegMod(x, p.n)
	}
	p.state = ProverCommitted
	p.round++
	p.logger.Debug(context.Background(), "commitment issued", "round", p.round, logging.Redacted("r"))
	return x, nil
}

// Respond answers the verifier's challenge with y = r·∏s[i] mod n over the
// indices where challenge[i] is true. The randomness of the current
// commitment is consumed: a second Respond without a new Commit fails with
// ErrOutOfOrder, since answering two challenges for one r reveals secrets.
func (p *Prover) Respond(challenge []bool) (*big.Int, error) {
	switch p.state {
	case ProverCommitted:
	case ProverDestroyed:
		return nil, ErrDestroyed
	default:
		return nil, &StateError{Op: "Respond", State: p.state}
	}
	if len(challenge) != p.params.K {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChallengeLength, len(challenge), p.params.K)
	}

	y := modarith.Mod(p.r, p.n)
	for i, bit := range challenge {
		if bit {
			next := modarith.MulMod(y, p.s[i], p.n)
			zeroizeInt(y)
			y = next
		}
	}
	zeroizeInt(p.r)
	p.r = nil
	p.state = ProverResponded
	p.logger.Debug(context.Background(), "response computed", "round", p.round, logging.Redacted("y"))
	return y, nil
}

// Destroy zeroizes the secrets and any pending randomness. The prover cannot
// be used afterwards.
func (p *Prover) Destroy() {
	for _, s := range p.s {
		zeroizeInt(s)
	}
	p.s = nil
	zeroizeInt(p.r)
	p.r = nil
	p.state = ProverDestroyed
}

func (p *Prover) drawSign() error {
	bits, err := modarith.RandBits(p.rand, 1)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	p.positive = bits[0]
	return nil
}
