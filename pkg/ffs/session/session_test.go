package session_test

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/mocknet"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/session"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/wire"
)

func testProver(t *testing.T, k int) *ffs.Prover {
	t.Helper()
	p, err := rand.Prime(rand.Reader, 128)
	require.NoError(t, err)
	q, err := rand.Prime(rand.Reader, 128)
	require.NoError(t, err)
	n := new(big.Int).Mul(p, q)

	secrets := make([]*big.Int, k)
	for i := range secrets {
		for {
			s, err := rand.Int(rand.Reader, n)
			require.NoError(t, err)
			if s.Sign() > 0 && new(big.Int).GCD(nil, nil, s, n).Cmp(big.NewInt(1)) == 0 {
				secrets[i] = s
				break
			}
		}
	}
	prover, err := ffs.NewProver(n, secrets, ffs.Params{K: k, L: 256})
	require.NoError(t, err)
	return prover
}

type outcome struct {
	prover, verifier       *session.Result
	proverErr, verifierErr error
}

func runPair(t *testing.T, pt, vt ffs.Transport, p *ffs.Prover, v *ffs.Verifier, pcfg, vcfg session.Config) outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out outcome
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.prover, out.proverErr = session.RunProver(gctx, pt, p, pcfg)
		return out.proverErr
	})
	g.Go(func() error {
		out.verifier, out.verifierErr = session.RunVerifier(gctx, vt, v, vcfg)
		return out.verifierErr
	})
	_ = g.Wait()
	return out
}

func TestHonestSessionAccepted(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	const k, rounds = 4, 6
	p := testProver(t, k)
	v, err := ffs.NewVerifier(ffs.Params{K: k})
	require.NoError(t, err)

	out := runPair(t, net.Endpoint(ffs.RoleProver), net.Endpoint(ffs.RoleVerifier), p, v,
		session.Config{Rounds: rounds}, session.Config{Rounds: rounds})

	require.NoError(t, out.proverErr)
	require.NoError(t, out.verifierErr)
	require.True(t, out.prover.Accepted)
	require.True(t, out.verifier.Accepted)
	require.Equal(t, rounds, out.prover.Rounds)
	require.Equal(t, rounds, out.verifier.Rounds)
	require.Equal(t, out.prover.SessionID, out.verifier.SessionID)
	require.NotEqual(t, uuid.Nil, out.verifier.SessionID)
	require.Equal(t, session.SoundnessError(k, rounds), out.verifier.SoundnessError)
	require.Equal(t, rounds, p.Round())
	require.Equal(t, rounds, v.Round())
}

func TestFixedSessionID(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	id := uuid.New()
	p := testProver(t, 2)
	v, err := ffs.NewVerifier(ffs.Params{K: 2})
	require.NoError(t, err)

	out := runPair(t, net.Endpoint(ffs.RoleProver), net.Endpoint(ffs.RoleVerifier), p, v,
		session.Config{Rounds: 2, SessionID: id}, session.Config{Rounds: 2, SessionID: id})
	require.NoError(t, out.proverErr)
	require.NoError(t, out.verifierErr)
	require.Equal(t, id, out.prover.SessionID)
	require.Equal(t, id, out.verifier.SessionID)
}

func TestSessionIDMismatch(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	p := testProver(t, 2)
	v, err := ffs.NewVerifier(ffs.Params{K: 2})
	require.NoError(t, err)

	out := runPair(t, net.Endpoint(ffs.RoleProver), net.Endpoint(ffs.RoleVerifier), p, v,
		session.Config{Rounds: 2, SessionID: uuid.New()}, session.Config{Rounds: 2, SessionID: uuid.New()})
	require.ErrorIs(t, out.verifierErr, session.ErrUnexpectedMessage)
	require.Error(t, out.proverErr)
	require.False(t, out.verifier.Accepted)
}

// tamper corrupts every response the prover sends.
type tamper struct {
	ffs.Transport
}

func (tp tamper) Send(ctx context.Context, to ffs.RoleID, msg []byte) error {
	env, err := wire.Decode(msg)
	if err != nil {
		return err
	}
	if env.Kind == wire.KindResponse {
		y, err := env.Integer()
		if err != nil {
			return err
		}
		y.Add(y, big.NewInt(1))
		env.Ints = [][]byte{y.Bytes()}
		if msg, err = wire.Encode(*env); err != nil {
			return err
		}
	}
	return tp.Transport.Send(ctx, to, msg)
}

func TestTamperedResponseRejected(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	p := testProver(t, 3)
	v, err := ffs.NewVerifier(ffs.Params{K: 3})
	require.NoError(t, err)

	out := runPair(t, tamper{net.Endpoint(ffs.RoleProver)}, net.Endpoint(ffs.RoleVerifier), p, v,
		session.Config{Rounds: 5}, session.Config{Rounds: 5})

	require.NoError(t, out.verifierErr)
	require.False(t, out.verifier.Accepted)
	require.Equal(t, 1, out.verifier.Rounds)
	require.Equal(t, float64(1), out.verifier.SoundnessError)

	require.ErrorIs(t, out.proverErr, session.ErrRejected)
	require.NotNil(t, out.prover)
	require.False(t, out.prover.Accepted)
	require.Equal(t, 1, out.prover.Rounds)
}

// reorder answers the first commitment with a message from the wrong round.
type reorder struct {
	ffs.Transport
}

func (r reorder) Send(ctx context.Context, to ffs.RoleID, msg []byte) error {
	env, err := wire.Decode(msg)
	if err != nil {
		return err
	}
	if env.Kind == wire.KindChallenge {
		env.Round += 7
		if msg, err = wire.Encode(*env); err != nil {
			return err
		}
	}
	return r.Transport.Send(ctx, to, msg)
}

func TestWrongRoundFailsProver(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	p := testProver(t, 2)
	v, err := ffs.NewVerifier(ffs.Params{K: 2})
	require.NoError(t, err)

	out := runPair(t, net.Endpoint(ffs.RoleProver), reorder{net.Endpoint(ffs.RoleVerifier)}, p, v,
		session.Config{Rounds: 3}, session.Config{Rounds: 3})
	require.ErrorIs(t, out.proverErr, session.ErrUnexpectedMessage)
	require.Error(t, out.verifierErr)
}

func TestMismatchedModulusFailsVerifier(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	p := testProver(t, 2)
	v, err := ffs.NewVerifier(ffs.Params{K: 2}, ffs.WithExpectedModulus(big.NewInt(35)))
	require.NoError(t, err)

	out := runPair(t, net.Endpoint(ffs.RoleProver), net.Endpoint(ffs.RoleVerifier), p, v,
		session.Config{Rounds: 1}, session.Config{Rounds: 1})
	require.ErrorIs(t, out.verifierErr, ffs.ErrModulusMismatch)
}

func TestVerifierTimesOutWithoutProver(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	v, err := ffs.NewVerifier(ffs.Params{K: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res, err := session.RunVerifier(ctx, net.Endpoint(ffs.RoleVerifier), v, session.Config{Rounds: 1})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, res.Accepted)
}

func TestClosedNetworkFailsProver(t *testing.T) {
	net := mocknet.New()
	p := testProver(t, 1)
	net.Close()

	_, err := session.RunProver(context.Background(), net.Endpoint(ffs.RoleProver), p, session.Config{Rounds: 1})
	require.True(t, errors.Is(err, mocknet.ErrClosed), "got %v", err)
}

func TestInvalidConfig(t *testing.T) {
	net := mocknet.New()
	defer net.Close()

	p := testProver(t, 1)
	v, err := ffs.NewVerifier(ffs.Params{K: 1})
	require.NoError(t, err)

	_, err = session.RunProver(context.Background(), net.Endpoint(ffs.RoleProver), p, session.Config{})
	require.ErrorIs(t, err, session.ErrInvalidConfig)
	_, err = session.RunVerifier(context.Background(), net.Endpoint(ffs.RoleVerifier), v, session.Config{Rounds: -1})
	require.ErrorIs(t, err, session.ErrInvalidConfig)
	_, err = session.RunVerifier(context.Background(), nil, v, session.Config{Rounds: 1})
	require.ErrorIs(t, err, session.ErrInvalidConfig)
}

func TestSoundnessError(t *testing.T) {
	require.Equal(t, 0.5, session.SoundnessError(1, 1))
	require.Equal(t, 1.0/1024, session.SoundnessError(5, 2))
	require.Equal(t, 1.0, session.SoundnessError(0, 10))
	require.Equal(t, 1.0, session.SoundnessError(4, 0))
}

func TestRoundsFor(t *testing.T) {
	cases := []struct {
		k, bits, want int
	}{
		{k: 1, bits: 20, want: 20},
		{k: 4, bits: 20, want: 5},
		{k: 6, bits: 20, want: 4},
		{k: 8, bits: 128, want: 16},
		{k: 3, bits: 0, want: 1},
	}
	for _, tc := range cases {
		got, err := session.RoundsFor(tc.k, tc.bits)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "k=%d bits=%d", tc.k, tc.bits)
		require.LessOrEqual(t, session.SoundnessError(tc.k, got), session.SoundnessError(1, tc.bits))
	}
	_, err := session.RoundsFor(0, 10)
	require.Error(t, err)
}
