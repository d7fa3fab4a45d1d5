package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs/tlsnet"
)

func newGenCertsCommand() *cobra.Command {
	var (
		outputDir string
		names     string
		opts      tlsnet.CertOptions
	)
	cmd := &cobra.Command{
		Use:   "gen-certs",
		Short: "Generate a demo CA and party certificates",
		Long: `Generate a demo CA plus one certificate per party for the prove and verify
commands. The output directory must lie inside the working directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := strings.Split(names, ",")
			for i := range list {
				list[i] = strings.TrimSpace(list[i])
			}
			if err := tlsnet.GenerateCertificates(list, outputDir, opts); err != nil {
				return fmt.Errorf("generate certificates: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote CA and %d party certificates to %s\n", len(list), outputDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "certs", "directory to write certificates")
	cmd.Flags().StringVar(&names, "names", "prover,verifier", "comma-separated party names")
	cmd.Flags().IntVar(&opts.KeyBits, "key-bits", 3072, "RSA key size for CA and party certs")
	cmd.Flags().IntVar(&opts.ValidityDays, "days", 365, "certificate validity in days")
	cmd.Flags().BoolVar(&opts.IncludeLocalhost, "localhost", true, "include localhost SANs for local demos")
	return cmd
}
