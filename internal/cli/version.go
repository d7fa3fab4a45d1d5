package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs"
)

// Build metadata, injected via -ldflags.
var (
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printer, err := NewPrinter(flags.outputFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if printer.format == OutputFormatJSON {
				return printer.printJSON(map[string]any{
					"version":    ffs.WrapperVersion(),
					"commit":     GitCommit,
					"build_date": BuildDate,
					"go_version": runtime.Version(),
					"os":         runtime.GOOS,
					"arch":       runtime.GOARCH,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ffs-go version %s\n", ffs.WrapperVersion())
			fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
			fmt.Fprintf(w, "Build date: %s\n", BuildDate)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
