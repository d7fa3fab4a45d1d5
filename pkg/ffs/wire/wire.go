package wire

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// MaxIntegerBytes bounds the size of a single encoded integer (a 64 Kib
// modulus).
const MaxIntegerBytes = 8192

// MaxElements bounds the number of integers or bits in one message.
const MaxElements = 1 << 16

var (
	// ErrMalformed indicates a message that is not a valid envelope.
	ErrMalformed = errors.New("wire: malformed message")

	// ErrNegative indicates an attempt to encode a negative integer.
	ErrNegative = errors.New("wire: negative integer")
)

// Kind identifies the protocol message carried by an Envelope.
type Kind uint8

const (
	KindPublicKeys Kind = iota + 1
	KindCommitment
	KindChallenge
	KindResponse
	KindVerdict
)

func (k Kind) String() string {
	switch k {
	case KindPublicKeys:
		return "public-keys"
	case KindCommitment:
		return "commitment"
	case KindChallenge:
		return "challenge"
	case KindResponse:
		return "response"
	case KindVerdict:
		return "verdict"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Envelope is the on-the-wire form of every protocol message.
type Envelope struct {
	Kind    Kind     `cbor:"1,keyasint"`
	Session []byte   `cbor:"2,keyasint"`
	Round   uint32   `cbor:"3,keyasint,omitempty"`
	Ints    [][]byte `cbor:"4,keyasint,omitempty"`
	Bits    []bool   `cbor:"5,keyasint,omitempty"`
	Accept  bool     `cbor:"6,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements:  MaxElements,
		MaxNestedLevels:   4,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: cbor decoder: %v", err))
	}
}

// Encode serializes env.
func Encode(env Envelope) ([]byte, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	return encMode.Marshal(env)
}

// Decode parses data into an Envelope and checks its shape.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := env.validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Integers decodes the integer payload.
func (e *Envelope) Integers() []*big.Int {
	out := make([]*big.Int, len(e.Ints))
	for i, b := range e.Ints {
		out[i] = new(big.Int).SetBytes(b)
	}
	return out
}

// Integer decodes a single-integer payload (commitment or response).
func (e *Envelope) Integer() (*big.Int, error) {
	if len(e.Ints) != 1 {
		return nil, fmt.Errorf("%w: %s carries %d integers", ErrMalformed, e.Kind, len(e.Ints))
	}
	return new(big.Int).SetBytes(e.Ints[0]), nil
}

// PublicKeys builds the message carrying the public-key vector.
func PublicKeys(session []byte, vec []*big.Int) (Envelope, error) {
	ints, err := encodeInts(vec)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindPublicKeys, Session: session, Ints: ints}, nil
}

// Commitment builds the message carrying x for the given round.
func Commitment(session []byte, round uint32, x *big.Int) (Envelope, error) {
	ints, err := encodeInts([]*big.Int{x})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindCommitment, Session: session, Round: round, Ints: ints}, nil
}

// Challenge builds the message carrying the challenge bits.
func Challenge(session []byte, round uint32, bits []bool) Envelope {
	return Envelope{Kind: KindChallenge, Session: session, Round: round, Bits: append([]bool(nil), bits...)}
}

// Response builds the message carrying y for the given round.
func Response(session []byte, round uint32, y *big.Int) (Envelope, error) {
	ints, err := encodeInts([]*big.Int{y})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: KindResponse, Session: session, Round: round, Ints: ints}, nil
}

// Verdict builds the verifier's accept/reject message for a round.
func Verdict(session []byte, round uint32, accept bool) Envelope {
	return Envelope{Kind: KindVerdict, Session: session, Round: round, Accept: accept}
}

func encodeInts(vals []*big.Int) ([][]byte, error) {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if v == nil {
			return nil, fmt.Errorf("%w: nil integer %d", ErrMalformed, i)
		}
		if v.Sign() < 0 {
			return nil, ErrNegative
		}
		out[i] = v.Bytes()
	}
	return out, nil
}

func (e *Envelope) validate() error {
	switch e.Kind {
	case KindPublicKeys, KindCommitment, KindChallenge, KindResponse, KindVerdict:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformed, uint8(e.Kind))
	}
	if len(e.Ints) > MaxElements || len(e.Bits) > MaxElements {
		return fmt.Errorf("%w: too many elements", ErrMalformed)
	}
	for _, b := range e.Ints {
		if len(b) > MaxIntegerBytes {
			return fmt.Errorf("%w: integer of %d bytes", ErrMalformed, len(b))
		}
	}
	switch e.Kind {
	case KindPublicKeys:
		if len(e.Ints) == 0 {
			return fmt.Errorf("%w: public keys without modulus", ErrMalformed)
		}
	case KindCommitment, KindResponse:
		if len(e.Ints) != 1 {
			return fmt.Errorf("%w: %s carries %d integers", ErrMalformed, e.Kind, len(e.Ints))
		}
	}
	return nil
}
