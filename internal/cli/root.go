// Package cli implements the ffs-go command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hsiuhsiu/ffs-go/internal/config"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile   string
	metricsAddr  string
	logLevel     string
	outputFormat string
}

// NewRootCommand builds the ffs-go command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "ffs-go",
		Short: "Feige-Fiat-Shamir zero-knowledge identification",
		Long: `ffs-go runs the Feige-Fiat-Shamir identification protocol.

A prover convinces a verifier that it knows the square roots behind a set of
public keys modulo n, over repeated commit/challenge/response rounds, without
revealing them. Parties talk over mutually authenticated TLS; the demo command
runs both in one process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	pf.StringVar(&flags.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	pf.StringVarP(&flags.outputFormat, "output", "o", "text", "output format (text, json)")

	root.AddCommand(
		newVersionCommand(flags),
		newDemoCommand(flags),
		newProveCommand(flags),
		newVerifyCommand(flags),
		newGenCertsCommand(),
	)
	return root
}

// Execute runs the command tree until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig loads the configuration and applies the flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = f.metricsAddr
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (logging.Logger, error) {
	sl, err := logging.NewHandler(w, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return logging.New(sl), nil
}
