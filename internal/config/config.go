// Package config loads the YAML configuration shared by the ffs-go commands.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/logging"
	"github.com/hsiuhsiu/ffs-go/pkg/ffs/session"
)

// Config is the complete configuration of one ffs-go party or demo run.
type Config struct {
	Protocol ProtocolConfig `yaml:"protocol"`
	Keys     KeysConfig     `yaml:"keys"`
	Seeds    SeedsConfig    `yaml:"seeds"`
	Network  NetworkConfig  `yaml:"network"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ProtocolConfig holds the security parameters and the round policy.
type ProtocolConfig struct {
	K      int `yaml:"k"`
	L      int `yaml:"l"`
	Rounds int `yaml:"rounds"`

	// SecurityBits derives Rounds when Rounds is zero. When both are set,
	// Rounds must reach at least SecurityBits of soundness.
	SecurityBits int  `yaml:"security_bits"`
	FreshSign    bool `yaml:"fresh_sign"`
}

// KeysConfig carries the prover's modulus and secrets as decimal strings.
// The verifier only uses Modulus, to pin the expected public modulus.
type KeysConfig struct {
	Modulus string   `yaml:"modulus"`
	Secrets []string `yaml:"secrets"`
}

// SeedsConfig holds optional hex seeds for reproducible runs. Empty means
// crypto/rand.
type SeedsConfig struct {
	Prover   string `yaml:"prover"`
	Verifier string `yaml:"verifier"`
}

// NetworkConfig describes the two parties for the TLS transport.
type NetworkConfig struct {
	ProverName      string        `yaml:"prover_name"`
	VerifierName    string        `yaml:"verifier_name"`
	VerifierAddress string        `yaml:"verifier_address"`
	CertDir         string        `yaml:"cert_dir"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// DefaultRounds applies when neither rounds nor security_bits is set.
const DefaultRounds = 10

// Default returns the configuration used when no file is given: k = 4 over
// the built-in demo modulus. Rounds is left unset so that Validate can
// derive it from security_bits, falling back to DefaultRounds (soundness
// error 2^-40).
func Default() *Config {
	return &Config{
		Protocol: ProtocolConfig{K: 4, L: 1024},
		Keys: KeysConfig{
			Modulus: demoModulus,
			Secrets: append([]string(nil), demoSecrets...),
		},
		Network: NetworkConfig{
			ProverName:      "prover",
			VerifierName:    "verifier",
			VerifierAddress: "127.0.0.1:7443",
			CertDir:         "certs",
			ConnectTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Address: "127.0.0.1:9464"},
	}
}

// Load reads the YAML file at path over the defaults, applies FFS_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 - config file path is provided by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	envInt("FFS_K", &cfg.Protocol.K)
	envInt("FFS_L", &cfg.Protocol.L)
	envInt("FFS_ROUNDS", &cfg.Protocol.Rounds)
	envInt("FFS_SECURITY_BITS", &cfg.Protocol.SecurityBits)
	envBool("FFS_FRESH_SIGN", &cfg.Protocol.FreshSign)

	envString("FFS_MODULUS", &cfg.Keys.Modulus)
	if secrets := os.Getenv("FFS_SECRETS"); secrets != "" {
		cfg.Keys.Secrets = strings.Split(secrets, ",")
		for i := range cfg.Keys.Secrets {
			cfg.Keys.Secrets[i] = strings.TrimSpace(cfg.Keys.Secrets[i])
		}
	}
	envString("FFS_PROVER_SEED", &cfg.Seeds.Prover)
	envString("FFS_VERIFIER_SEED", &cfg.Seeds.Verifier)

	envString("FFS_PROVER_NAME", &cfg.Network.ProverName)
	envString("FFS_VERIFIER_NAME", &cfg.Network.VerifierName)
	envString("FFS_VERIFIER_ADDRESS", &cfg.Network.VerifierAddress)
	envString("FFS_CERT_DIR", &cfg.Network.CertDir)
	if raw := os.Getenv("FFS_CONNECT_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			slog.Warn("ignoring invalid environment override", "var", "FFS_CONNECT_TIMEOUT", "value", raw, "error", err)
		} else {
			cfg.Network.ConnectTimeout = d
		}
	}

	envString("FFS_LOG_LEVEL", &cfg.Logging.Level)
	envString("FFS_LOG_FORMAT", &cfg.Logging.Format)
	envBool("FFS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envString("FFS_METRICS_ADDRESS", &cfg.Metrics.Address)
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring invalid environment override", "var", name, "value", raw, "error", err)
		return
	}
	*dst = v
}

func envBool(name string, dst *bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("ignoring invalid environment override", "var", name, "value", raw, "error", err)
		return
	}
	*dst = v
}

// Validate checks the configuration and fills in Rounds: derived from
// SecurityBits when only that is set, DefaultRounds when neither is.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Protocol.SecurityBits < 0 {
		return fmt.Errorf("invalid security_bits: %d", c.Protocol.SecurityBits)
	}
	switch {
	case c.Protocol.SecurityBits > 0:
		rounds, err := session.RoundsFor(c.Protocol.K, c.Protocol.SecurityBits)
		if err != nil {
			return err
		}
		if c.Protocol.Rounds == 0 {
			c.Protocol.Rounds = rounds
		} else if c.Protocol.Rounds > 0 && c.Protocol.Rounds < rounds {
			return fmt.Errorf("rounds %d give %d bits of soundness at k=%d, below security_bits %d",
				c.Protocol.Rounds, c.Protocol.Rounds*c.Protocol.K, c.Protocol.K, c.Protocol.SecurityBits)
		}
	case c.Protocol.Rounds == 0:
		c.Protocol.Rounds = DefaultRounds
	}
	if c.Protocol.Rounds < 1 {
		return fmt.Errorf("invalid rounds: %d (must be positive)", c.Protocol.Rounds)
	}

	if _, err := c.Modulus(); err != nil {
		return err
	}
	if _, err := c.Secrets(); err != nil {
		return err
	}
	if _, err := c.ProverSeed(); err != nil {
		return err
	}
	if _, err := c.VerifierSeed(); err != nil {
		return err
	}

	if c.Network.ProverName == "" || c.Network.VerifierName == "" {
		return errors.New("network: prover_name and verifier_name are required")
	}
	if c.Network.ProverName == c.Network.VerifierName {
		return fmt.Errorf("network: prover and verifier share the name %q", c.Network.ProverName)
	}
	if c.Network.ConnectTimeout < 0 {
		return fmt.Errorf("network: negative connect_timeout %s", c.Network.ConnectTimeout)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return errors.New("metrics: address required when enabled")
	}
	return nil
}

// Params returns the protocol parameters.
func (c *Config) Params() ffs.Params {
	return ffs.Params{K: c.Protocol.K, L: c.Protocol.L}
}

// Modulus parses the configured modulus.
func (c *Config) Modulus() (*big.Int, error) {
	n, err := parseDecimal(c.Keys.Modulus)
	if err != nil {
		return nil, fmt.Errorf("keys: modulus: %w", err)
	}
	if n.Cmp(big.NewInt(1)) <= 0 {
		return nil, errors.New("keys: modulus must be greater than 1")
	}
	return n, nil
}

// Secrets parses the configured secrets. Their count must equal k.
func (c *Config) Secrets() ([]*big.Int, error) {
	if len(c.Keys.Secrets) != c.Protocol.K {
		return nil, fmt.Errorf("keys: %d secrets configured for k = %d", len(c.Keys.Secrets), c.Protocol.K)
	}
	out := make([]*big.Int, len(c.Keys.Secrets))
	for i, s := range c.Keys.Secrets {
		v, err := parseDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("keys: secret %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ProverSeed decodes the prover seed; nil means no seed.
func (c *Config) ProverSeed() ([]byte, error) {
	return parseSeed("prover", c.Seeds.Prover)
}

// VerifierSeed decodes the verifier seed; nil means no seed.
func (c *Config) VerifierSeed() ([]byte, error) {
	return parseSeed("verifier", c.Seeds.Verifier)
}

// Names returns the party names indexed by role ID.
func (c *Config) Names() []string {
	return []string{c.Network.ProverName, c.Network.VerifierName}
}

// Addresses returns the party addresses indexed by role ID. Only the
// verifier listens.
func (c *Config) Addresses() []string {
	return []string{"", c.Network.VerifierAddress}
}

func parseDecimal(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty value")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("not a decimal integer")
	}
	return v, nil
}

func parseSeed(who, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	seed, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("seeds: %s: %w", who, err)
	}
	if len(seed) == 0 {
		return nil, fmt.Errorf("seeds: %s: empty seed", who)
	}
	return seed, nil
}
