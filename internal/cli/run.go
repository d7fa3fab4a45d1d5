package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hsiuhsiu/ffs-go/internal/config"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/mocknet"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/session"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/tlsnet"
)

// errRejected is returned by a command whose session ended in rejection.
var errRejected = errors.New("identification rejected")

// environment is what every protocol command needs before it starts.
type environment struct {
	cfg     *config.Config
	logger  logging.Logger
	printer *Printer
	stop    func()
}

func (f *globalFlags) setup(cmd *cobra.Command) (*environment, error) {
	printer, err := NewPrinter(f.outputFormat, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, logger: logger, printer: printer, stop: func() {}}
	if cfg.Metrics.Enabled {
		stop, err := startMetrics(cmd.Context(), cfg.Metrics.Address, logger)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		env.stop = stop
	}
	return env, nil
}

func (e *environment) newProver() (*ffs.Prover, error) {
	n, err := e.cfg.Modulus()
	if err != nil {
		return nil, err
	}
	secrets, err := e.cfg.Secrets()
	if err != nil {
		return nil, err
	}
	seed, err := e.cfg.ProverSeed()
	if err != nil {
		return nil, err
	}
	opts := []ffs.Option{ffs.WithLogger(e.logger)}
	if seed != nil {
		opts = append(opts, ffs.WithSeed(seed))
	}
	if e.cfg.Protocol.FreshSign {
		opts = append(opts, ffs.WithFreshSign())
	}
	return ffs.NewProver(n, secrets, e.cfg.Params(), opts...)
}

func (e *environment) newVerifier() (*ffs.Verifier, error) {
	n, err := e.cfg.Modulus()
	if err != nil {
		return nil, err
	}
	seed, err := e.cfg.VerifierSeed()
	if err != nil {
		return nil, err
	}
	opts := []ffs.Option{ffs.WithLogger(e.logger), ffs.WithExpectedModulus(n)}
	if seed != nil {
		opts = append(opts, ffs.WithSeed(seed))
	}
	return ffs.NewVerifier(e.cfg.Params(), opts...)
}

func (e *environment) sessionConfig() session.Config {
	return session.Config{Rounds: e.cfg.Protocol.Rounds, Logger: e.logger}
}

func (e *environment) tlsConfig(role ffs.Role) (tlsnet.Config, error) {
	names := e.cfg.Names()
	cert, pool, err := tlsnet.LoadCertificates(e.cfg.Network.CertDir, names[role.ID()])
	if err != nil {
		return tlsnet.Config{}, err
	}
	return tlsnet.Config{
		Role:           role,
		Names:          names,
		Addresses:      e.cfg.Addresses(),
		Certificate:    cert,
		RootCAs:        pool,
		ConnectTimeout: e.cfg.Network.ConnectTimeout,
		Logger:         e.logger,
	}, nil
}

func newDemoCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a prover and a verifier in one process",
		Long: `Run both parties over an in-memory network and print each side's result.
Without --config the built-in demo keys are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			defer env.stop()
			return runDemo(cmd.Context(), env)
		},
	}
}

func runDemo(ctx context.Context, env *environment) error {
	prover, err := env.newProver()
	if err != nil {
		return err
	}
	defer prover.Destroy()
	verifier, err := env.newVerifier()
	if err != nil {
		return err
	}

	net := mocknet.New()
	defer net.Close()

	var pres, vres *session.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pres, err = session.RunProver(gctx, net.Endpoint(ffs.RoleProver), prover, env.sessionConfig())
		if errors.Is(err, session.ErrRejected) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		vres, err = session.RunVerifier(gctx, net.Endpoint(ffs.RoleVerifier), verifier, env.sessionConfig())
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := env.printer.PrintResult(pres); err != nil {
		return err
	}
	if err := env.printer.PrintResult(vres); err != nil {
		return err
	}
	if !vres.Accepted {
		return errRejected
	}
	return nil
}

func newProveCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prove",
		Short: "Act as the prover over mutual TLS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			defer env.stop()
			ctx := cmd.Context()

			prover, err := env.newProver()
			if err != nil {
				return err
			}
			defer prover.Destroy()

			tcfg, err := env.tlsConfig(ffs.RoleProver)
			if err != nil {
				return err
			}
			tr, err := tlsnet.New(ctx, tcfg)
			if err != nil {
				return err
			}
			defer tr.Close()

			res, err := session.RunProver(ctx, tr, prover, env.sessionConfig())
			if perr := env.printer.PrintResult(res); perr != nil {
				return perr
			}
			if errors.Is(err, session.ErrRejected) {
				return errRejected
			}
			return err
		},
	}
}

func newVerifyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Act as the verifier over mutual TLS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			defer env.stop()
			ctx := cmd.Context()

			verifier, err := env.newVerifier()
			if err != nil {
				return err
			}
			tcfg, err := env.tlsConfig(ffs.RoleVerifier)
			if err != nil {
				return err
			}
			tr, err := tlsnet.New(ctx, tcfg)
			if err != nil {
				return err
			}
			defer tr.Close()

			res, err := session.RunVerifier(ctx, tr, verifier, env.sessionConfig())
			if err != nil {
				return err
			}
			if err := env.printer.PrintResult(res); err != nil {
				return err
			}
			if !res.Accepted {
				return errRejected
			}
			return nil
		},
	}
}
