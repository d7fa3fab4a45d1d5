package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hsiuhsiu/ffs-go/pkg/ffs/session"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a Printer for format ("text" or "json").
func NewPrinter(format string, writer io.Writer) (*Printer, error) {
	switch f := OutputFormat(format); f {
	case OutputFormatText, OutputFormatJSON:
		return &Printer{format: f, writer: writer}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// PrintResult prints the outcome of one party's session.
func (p *Printer) PrintResult(res *session.Result) error {
	if res == nil {
		return nil
	}
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{
			"session_id":      res.SessionID.String(),
			"role":            res.Role.String(),
			"rounds":          res.Rounds,
			"accepted":        res.Accepted,
			"soundness_error": res.SoundnessError,
			"duration_ms":     res.Duration.Milliseconds(),
		})
	}
	verdict := "REJECTED"
	if res.Accepted {
		verdict = "ACCEPTED"
	}
	_, err := fmt.Fprintf(p.writer, "%-8s session %s: %s after %d rounds (soundness error %.3g, %s)\n",
		res.Role, res.SessionID, verdict, res.Rounds, res.SoundnessError, res.Duration.Round(time.Millisecond))
	return err
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
