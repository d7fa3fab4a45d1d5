package tlsnet

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/session"
)

var testNames = []string{"prover", "verifier"}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return addr
}

func writeTestCerts(t *testing.T, names ...string) string {
	t.Helper()
	t.Chdir(t.TempDir())
	if err := GenerateCertificates(names, "certs", CertOptions{KeyBits: 2048, IncludeLocalhost: true}); err != nil {
		t.Fatalf("GenerateCertificates: %v", err)
	}
	return "certs"
}

func configFor(t *testing.T, dir string, role ffs.Role, certName string, addrs []string) Config {
	t.Helper()
	cert, pool, err := LoadCertificates(dir, certName)
	if err != nil {
		t.Fatalf("LoadCertificates(%s): %v", certName, err)
	}
	return Config{
		Role:           role,
		Names:          testNames,
		Addresses:      addrs,
		Certificate:    cert,
		RootCAs:        pool,
		ConnectTimeout: 5 * time.Second,
	}
}

func connectPair(t *testing.T, pcfg, vcfg Config) (*Transport, *Transport, error, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		prover, verifier *Transport
		perr, verr       error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		prover, perr = New(ctx, pcfg)
	}()
	verifier, verr = New(ctx, vcfg)
	<-done
	return prover, verifier, perr, verr
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{{}, []byte("commitment"), bytes.Repeat([]byte{7}, 4096)}
	for _, p := range payloads {
		if err := writeFrame(&buf, p); err != nil {
			t.Fatalf("writeFrame: %v", err)
		}
	}
	for i, want := range payloads {
		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d mismatch: got %d bytes, want %d", i, len(got), len(want))
		}
	}
}

func TestReadFrameRejectsOversized(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := readFrame(buf); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

func TestGenerateCertificatesValidation(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := GenerateCertificates([]string{"only"}, "certs", CertOptions{}); err == nil {
		t.Fatal("expected error for a single party")
	}
	if err := GenerateCertificates([]string{"a", "a"}, "certs", CertOptions{}); err == nil {
		t.Fatal("expected error for duplicate names")
	}
	if err := GenerateCertificates([]string{"a", "b"}, "../escape", CertOptions{}); err == nil {
		t.Fatal("expected error for a directory outside the working directory")
	}
	if err := GenerateCertificates([]string{"a", "b"}, "certs", CertOptions{KeyBits: 1024}); err == nil {
		t.Fatal("expected error for a weak key size")
	}
}

func TestConfigValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Config{Role: ffs.RoleProver, Names: testNames, Addresses: []string{"", "x"}}); err == nil {
		t.Fatal("expected error without root CAs")
	}
	if _, err := New(ctx, Config{Role: ffs.RoleProver, Names: testNames[:1], Addresses: []string{"x"}}); err == nil {
		t.Fatal("expected error for a single name")
	}
}

func TestTransportExchange(t *testing.T) {
	dir := writeTestCerts(t, testNames...)
	addrs := []string{"", freeAddr(t)}

	prover, verifier, perr, verr := connectPair(t,
		configFor(t, dir, ffs.RoleProver, "prover", addrs),
		configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
	if perr != nil || verr != nil {
		t.Fatalf("connect: prover=%v verifier=%v", perr, verr)
	}
	defer prover.Close()
	defer verifier.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		msg := []byte{byte(i), 1, 2, 3}
		if err := prover.Send(ctx, ffs.RoleVerifier.ID(), msg); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		got, err := verifier.Receive(ctx, ffs.RoleProver.ID())
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("message %d mismatch: got %v want %v", i, got, msg)
		}
	}

	if err := prover.Send(ctx, ffs.RoleProver.ID(), nil); err == nil {
		t.Fatal("expected error sending to self")
	}
	if _, err := verifier.Receive(ctx, ffs.RoleID(9)); err == nil {
		t.Fatal("expected error receiving from unknown peer")
	}

	if err := verifier.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := verifier.Receive(ctx, ffs.RoleProver.ID()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestSessionOverTLS(t *testing.T) {
	dir := writeTestCerts(t, testNames...)
	addrs := []string{"", freeAddr(t)}

	pt, vt, perr, verr := connectPair(t,
		configFor(t, dir, ffs.RoleProver, "prover", addrs),
		configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
	if perr != nil || verr != nil {
		t.Fatalf("connect: prover=%v verifier=%v", perr, verr)
	}
	defer pt.Close()
	defer vt.Close()

	// n = 1009 * 2003
	n := big.NewInt(1009 * 2003)
	secrets := []*big.Int{big.NewInt(5), big.NewInt(17), big.NewInt(123456)}
	params := ffs.Params{K: len(secrets), L: 40}
	p, err := ffs.NewProver(n, secrets, params)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}
	v, err := ffs.NewVerifier(params, ffs.WithExpectedModulus(n))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var vres *session.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := session.RunProver(gctx, pt, p, session.Config{Rounds: 8})
		return err
	})
	g.Go(func() error {
		var err error
		vres, err = session.RunVerifier(gctx, vt, v, session.Config{Rounds: 8})
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("session: %v", err)
	}
	if !vres.Accepted || vres.Rounds != 8 {
		t.Fatalf("unexpected result: %+v", vres)
	}
}

func TestCloseAfterFinalSendDeliversMessage(t *testing.T) {
	dir := writeTestCerts(t, testNames...)

	for i := 0; i < 10; i++ {
		addrs := []string{"", freeAddr(t)}
		prover, verifier, perr, verr := connectPair(t,
			configFor(t, dir, ffs.RoleProver, "prover", addrs),
			configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
		if perr != nil || verr != nil {
			t.Fatalf("connect %d: prover=%v verifier=%v", i, perr, verr)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		msg := bytes.Repeat([]byte{byte(i)}, 64)
		if err := verifier.Send(ctx, ffs.RoleProver.ID(), msg); err != nil {
			cancel()
			t.Fatalf("send %d: %v", i, err)
		}
		if err := verifier.Close(); err != nil {
			cancel()
			t.Fatalf("close %d: %v", i, err)
		}
		got, err := prover.Receive(ctx, ffs.RoleVerifier.ID())
		cancel()
		_ = prover.Close()
		if err != nil {
			t.Fatalf("receive %d: %v", i, err)
		}
		if !bytes.Equal(got, msg) {
			t.Fatalf("message %d mismatch: got %d bytes", i, len(got))
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	dir := writeTestCerts(t, testNames...)
	addrs := []string{"", freeAddr(t)}
	prover, verifier, perr, verr := connectPair(t,
		configFor(t, dir, ffs.RoleProver, "prover", addrs),
		configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
	if perr != nil || verr != nil {
		t.Fatalf("connect: prover=%v verifier=%v", perr, verr)
	}
	defer prover.Close()

	if err := verifier.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := verifier.Send(context.Background(), ffs.RoleProver.ID(), []byte{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSessionOverTLSVerifierClosesOnReturn(t *testing.T) {
	dir := writeTestCerts(t, testNames...)
	addrs := []string{"", freeAddr(t)}

	pt, vt, perr, verr := connectPair(t,
		configFor(t, dir, ffs.RoleProver, "prover", addrs),
		configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
	if perr != nil || verr != nil {
		t.Fatalf("connect: prover=%v verifier=%v", perr, verr)
	}
	defer pt.Close()

	n := big.NewInt(1009 * 2003)
	secrets := []*big.Int{big.NewInt(5), big.NewInt(17)}
	params := ffs.Params{K: len(secrets), L: 40}
	p, err := ffs.NewProver(n, secrets, params)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}
	v, err := ffs.NewVerifier(params, ffs.WithExpectedModulus(n))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var pres *session.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pres, err = session.RunProver(gctx, pt, p, session.Config{Rounds: 4})
		return err
	})
	g.Go(func() error {
		defer vt.Close()
		_, err := session.RunVerifier(gctx, vt, v, session.Config{Rounds: 4})
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("session: %v", err)
	}
	if !pres.Accepted || pres.Rounds != 4 {
		t.Fatalf("unexpected prover result: %+v", pres)
	}
}

func TestUnexpectedClientCertificateRejected(t *testing.T) {
	dir := writeTestCerts(t, "prover", "verifier", "mallory")
	addrs := []string{"", freeAddr(t)}

	prover, _, _, verr := connectPair(t,
		configFor(t, dir, ffs.RoleProver, "mallory", addrs),
		configFor(t, dir, ffs.RoleVerifier, "verifier", addrs))
	if prover != nil {
		defer prover.Close()
	}
	if !errors.Is(verr, ErrPeerIdentity) {
		t.Fatalf("expected ErrPeerIdentity, got %v", verr)
	}
}

func TestConnectTimeout(t *testing.T) {
	dir := writeTestCerts(t, testNames...)
	cfg := configFor(t, dir, ffs.RoleProver, "prover", []string{"", freeAddr(t)})
	cfg.ConnectTimeout = 300 * time.Millisecond

	start := time.Now()
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}
