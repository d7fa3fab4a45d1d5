package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/metrics"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/wire"
)

var (
	// ErrInvalidConfig indicates an unusable session configuration.
	ErrInvalidConfig = errors.New("session: invalid configuration")

	// ErrRejected is returned to the prover when the verifier rejects a round.
	ErrRejected = errors.New("session: proof rejected by verifier")

	// ErrUnexpectedMessage indicates a message of the wrong kind, round or
	// session.
	ErrUnexpectedMessage = errors.New("session: unexpected message")
)

// Config controls one session.
type Config struct {
	// Rounds is the number of rounds to run. Both parties must agree on it.
	Rounds int

	// SessionID identifies the session. The prover generates one when it is
	// the zero UUID; the verifier adopts the prover's id unless set.
	SessionID uuid.UUID

	// Logger receives session events. Defaults to logging.New(nil).
	Logger logging.Logger
}

func (c Config) validate() error {
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	}
	if uint64(c.Rounds) > math.MaxUint32 {
		return fmt.Errorf("%w: too many rounds (%d)", ErrInvalidConfig, c.Rounds)
	}
	return nil
}

// Result summarizes a finished session.
type Result struct {
	SessionID uuid.UUID
	Role      ffs.Role

	// Rounds is the number of rounds that received a verdict.
	Rounds int

	// Accepted is true when every configured round was accepted.
	Accepted bool

	// SoundnessError is 2^-(k·Rounds) for an accepted session and 1
	// otherwise.
	SoundnessError float64

	Duration time.Duration
}

type run struct {
	tr     ffs.Transport
	role   ffs.Role
	sid    uuid.UUID
	logger logging.Logger
}

func newRun(tr ffs.Transport, role ffs.Role, cfg Config) *run {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(nil)
	}
	return &run{tr: tr, role: role, sid: cfg.SessionID, logger: logger.With("role", role.String())}
}

func (r *run) send(ctx context.Context, env wire.Envelope) error {
	data, err := wire.Encode(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Kind, err)
	}
	if err := r.tr.Send(ctx, r.role.Peer(), data); err != nil {
		return fmt.Errorf("send %s: %w", env.Kind, err)
	}
	return nil
}

func (r *run) expect(ctx context.Context, kind wire.Kind, round uint32) (*wire.Envelope, error) {
	data, err := r.tr.Receive(ctx, r.role.Peer())
	if err != nil {
		return nil, fmt.Errorf("receive %s: %w", kind, err)
	}
	env, err := wire.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	if env.Kind != kind {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedMessage, env.Kind, kind)
	}
	if env.Round != round {
		return nil, fmt.Errorf("%w: %s for round %d, want %d", ErrUnexpectedMessage, kind, env.Round, round)
	}
	if !bytes.Equal(env.Session, r.sid[:]) {
		return nil, fmt.Errorf("%w: %s for another session", ErrUnexpectedMessage, kind)
	}
	return env, nil
}

// RunProver runs the prover side of a session over tr.
//
// It returns ErrRejected, together with a Result, when the verifier rejects
// a round.
func RunProver(ctx context.Context, tr ffs.Transport, p *ffs.Prover, cfg Config) (res *Result, err error) {
	if tr == nil || p == nil {
		return nil, fmt.Errorf("%w: nil transport or prover", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.SessionID == uuid.Nil {
		cfg.SessionID = uuid.New()
	}
	r := newRun(tr, ffs.RoleProver, cfg)
	r.logger = r.logger.With("session_id", r.sid.String())

	start := time.Now()
	res = &Result{SessionID: r.sid, Role: ffs.RoleProver, SoundnessError: 1}
	done := metrics.SessionStarted(ffs.RoleProver.String())
	defer func() {
		done()
		res.Duration = time.Since(start)
		r.finish(ctx, res, err)
	}()

	r.logger.Info(ctx, "session started", "rounds", cfg.Rounds, "k", p.Params().K)
	keys, err := wire.PublicKeys(r.sid[:], p.PublicKeys().Vector())
	if err != nil {
		return res, err
	}
	if err := r.send(ctx, keys); err != nil {
		return res, err
	}

	for i := 1; i <= cfg.Rounds; i++ {
		round := uint32(i)
		roundStart := time.Now()

		x, err := p.Commit()
		if err != nil {
			return res, err
		}
		msg, err := wire.Commitment(r.sid[:], round, x)
		if err != nil {
			return res, err
		}
		if err := r.send(ctx, msg); err != nil {
			return res, err
		}

		chal, err := r.expect(ctx, wire.KindChallenge, round)
		if err != nil {
			return res, err
		}
		y, err := p.Respond(chal.Bits)
		if err != nil {
			return res, err
		}
		msg, err = wire.Response(r.sid[:], round, y)
		if err != nil {
			return res, err
		}
		if err := r.send(ctx, msg); err != nil {
			return res, err
		}

		verdict, err := r.expect(ctx, wire.KindVerdict, round)
		if err != nil {
			return res, err
		}
		res.Rounds = i
		metrics.RecordRound(ffs.RoleProver.String(), verdict.Accept, time.Since(roundStart))
		r.logger.Debug(ctx, "round finished", "round", i, "accepted", verdict.Accept)
		if !verdict.Accept {
			return res, fmt.Errorf("round %d: %w", i, ErrRejected)
		}
	}

	res.Accepted = true
	res.SoundnessError = SoundnessError(p.Params().K, res.Rounds)
	return res, nil
}

// RunVerifier runs the verifier side of a session over tr.
//
// A rejected round ends the session with Accepted false and a nil error;
// errors are reserved for transport failures and protocol violations.
func RunVerifier(ctx context.Context, tr ffs.Transport, v *ffs.Verifier, cfg Config) (res *Result, err error) {
	if tr == nil || v == nil {
		return nil, fmt.Errorf("%w: nil transport or verifier", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	r := newRun(tr, ffs.RoleVerifier, cfg)

	start := time.Now()
	res = &Result{Role: ffs.RoleVerifier, SoundnessError: 1}
	done := metrics.SessionStarted(ffs.RoleVerifier.String())
	defer func() {
		done()
		res.Duration = time.Since(start)
		r.finish(ctx, res, err)
	}()

	data, err := tr.Receive(ctx, ffs.RoleVerifier.Peer())
	if err != nil {
		return res, fmt.Errorf("receive %s: %w", wire.KindPublicKeys, err)
	}
	keys, err := wire.Decode(data)
	if err != nil {
		return res, fmt.Errorf("decode %s: %w", wire.KindPublicKeys, err)
	}
	if keys.Kind != wire.KindPublicKeys || keys.Round != 0 {
		return res, fmt.Errorf("%w: got %s, want %s", ErrUnexpectedMessage, keys.Kind, wire.KindPublicKeys)
	}
	sid, err := uuid.FromBytes(keys.Session)
	if err != nil {
		return res, fmt.Errorf("%w: bad session id: %w", ErrUnexpectedMessage, err)
	}
	if cfg.SessionID != uuid.Nil && sid != cfg.SessionID {
		return res, fmt.Errorf("%w: session %s, want %s", ErrUnexpectedMessage, sid, cfg.SessionID)
	}
	r.sid = sid
	res.SessionID = sid
	r.logger = r.logger.With("session_id", sid.String())

	if err := v.ReceivePublicKeys(keys.Integers()); err != nil {
		return res, err
	}
	r.logger.Info(ctx, "session started", "rounds", cfg.Rounds, "k", v.Params().K)

	for i := 1; i <= cfg.Rounds; i++ {
		round := uint32(i)
		roundStart := time.Now()

		commit, err := r.expect(ctx, wire.KindCommitment, round)
		if err != nil {
			return res, err
		}
		x, err := commit.Integer()
		if err != nil {
			return res, err
		}
		bits, err := v.Challenge(x)
		if err != nil {
			return res, err
		}
		if err := r.send(ctx, wire.Challenge(r.sid[:], round, bits)); err != nil {
			return res, err
		}

		resp, err := r.expect(ctx, wire.KindResponse, round)
		if err != nil {
			return res, err
		}
		y, err := resp.Integer()
		if err != nil {
			return res, err
		}
		ok, err := v.Verify(y)
		if err != nil {
			return res, err
		}
		if err := r.send(ctx, wire.Verdict(r.sid[:], round, ok)); err != nil {
			return res, err
		}

		res.Rounds = i
		metrics.RecordRound(ffs.RoleVerifier.String(), ok, time.Since(roundStart))
		r.logger.Debug(ctx, "round finished", "round", i, "accepted", ok)
		if !ok {
			return res, nil
		}
	}

	res.Accepted = true
	res.SoundnessError = SoundnessError(v.Params().K, res.Rounds)
	return res, nil
}

func (r *run) finish(ctx context.Context, res *Result, err error) {
	role := r.role.String()
	if err != nil && !errors.Is(err, ErrRejected) {
		metrics.RecordSession(role, false, errorType(err))
		r.logger.Error(ctx, "session failed", "rounds", res.Rounds, "error", err)
		return
	}
	metrics.RecordSession(role, res.Accepted, "")
	if res.Accepted {
		r.logger.Info(ctx, "session accepted", "rounds", res.Rounds,
			"soundness_error", res.SoundnessError, "duration", res.Duration)
		return
	}
	r.logger.Warn(ctx, "session rejected", "rounds", res.Rounds, "duration", res.Duration)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrUnexpectedMessage), errors.Is(err, wire.ErrMalformed):
		return "protocol"
	case errors.Is(err, ffs.ErrOutOfOrder), errors.Is(err, ffs.ErrChallengeLength),
		errors.Is(err, ffs.ErrPublicKeysLength), errors.Is(err, ffs.ErrInvalidModulus),
		errors.Is(err, ffs.ErrModulusMismatch), errors.Is(err, ffs.ErrNilValue):
		return "invalid_message"
	case errors.Is(err, ffs.ErrRandomSource):
		return "random_source"
	default:
		return "transport"
	}
}
