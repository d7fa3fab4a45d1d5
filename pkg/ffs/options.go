package ffs

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
)

// Option configures a Prover or Verifier.
type Option func(*options)

type options struct {
	rand      io.Reader
	seed      []byte
	logger    logging.Logger
	freshSign bool
	expectedN *big.Int
}

// WithSeed makes the instance draw its randomness from a deterministic
// ChaCha20 stream derived from seed. Use it for reproducible tests; production
// code should leave the default crypto/rand source in place.
func WithSeed(seed []byte) Option {
	return func(o *options) {
		o.seed = append([]byte{}, seed...)
	}
}

// WithRandom installs r as the random source. It takes precedence over
// WithSeed. The instance assumes exclusive use of r.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithLogger sets the logger. The default is logging.New(nil).
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFreshSign makes the prover draw a new commitment sign on every Commit
// instead of once per instance. Verification is unaffected.
func WithFreshSign() Option {
	return func(o *options) {
		o.freshSign = true
	}
}

// WithExpectedModulus makes the verifier reject public keys for any modulus
// other than n.
func WithExpectedModulus(n *big.Int) Option {
	return func(o *options) {
		if n != nil {
			o.expectedN = new(big.Int).Set(n)
		}
	}
}

func resolveOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.logger == nil {
		o.logger = logging.New(nil)
	}
	switch {
	case o.rand != nil:
	case o.seed != nil:
		r, err := NewSeededReader(o.seed)
		if err != nil {
			return nil, err
		}
		o.rand = r
	default:
		o.rand = rand.Reader
	}
	ZeroizeBytes(o.seed)
	o.seed = nil
	return o, nil
}
