package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/phaeton"
	"github.com/ajitpratap0/phaeton/pkg/definition"
	"github.com/ajitpratap0/phaeton/pkg/errors"
	"github.com/ajitpratap0/phaeton/pkg/source"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "run <definition>",
		Short: "Execute the pipelines of a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := definition.Load(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(ctx, v)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			ps, err := doc.Build(s.engine)
			if err != nil {
				printDiagnostics(cmd.ErrOrStderr(), errors.DiagnosticsOf(err))
				return err
			}
			s.log.Info("running definition", zap.String("file", args[0]), zap.Int("pipelines", len(ps)))

			stats, err := s.engine.Exec(ctx, ps...)
			if stats == nil && err != nil {
				printDiagnostics(cmd.ErrOrStderr(), errors.DiagnosticsOf(err))
				return err
			}
			if perr := printStats(cmd.OutOrStdout(), output, stats); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Stats format (table, json)")
	return cmd
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition>",
		Short: "Check a definition against its source headers without reading rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc, err := definition.Load(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(ctx, v)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			ps, err := doc.Build(s.engine)
			if err != nil {
				printDiagnostics(cmd.ErrOrStderr(), errors.DiagnosticsOf(err))
				return err
			}
			if ds := s.engine.Validate(ctx, ps...); len(ds) > 0 {
				printDiagnostics(cmd.ErrOrStderr(), ds)
				return ds.Aggregate()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pipeline(s) OK\n", len(ps))
			return nil
		},
	}
}

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Detect the encoding, delimiter and headers of a delimited file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := source.ProbeFile(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(probeOutput{
				Encoding:   meta.Encoding,
				Confidence: meta.Confidence,
				Delimiter:  string(meta.Delimiter),
				Headers:    meta.Headers,
			})
		},
	}
}

type probeOutput struct {
	Encoding   string   `json:"encoding"`
	Confidence float64  `json:"confidence"`
	Delimiter  string   `json:"delimiter"`
	Headers    []string `json:"headers"`
}

type statsOutput struct {
	Pipeline          string  `json:"pipeline"`
	Processed         int64   `json:"processed"`
	Saved             int64   `json:"saved"`
	Quarantined       int64   `json:"quarantined"`
	Deduped           int64   `json:"deduped"`
	QuarantineWritten int64   `json:"quarantine_written"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Error             string  `json:"error,omitempty"`
}

func printStats(w io.Writer, format string, stats []phaeton.Stats) error {
	rows := make([]statsOutput, len(stats))
	for i, st := range stats {
		rows[i] = statsOutput{
			Pipeline:          st.Pipeline,
			Processed:         st.Processed,
			Saved:             st.Saved,
			Quarantined:       st.Quarantined,
			Deduped:           st.Deduped,
			QuarantineWritten: st.QuarantineWritten,
			DurationSeconds:   st.Duration.Seconds(),
		}
		if st.Err != nil {
			rows[i].Error = st.Err.Error()
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PIPELINE\tPROCESSED\tSAVED\tQUARANTINED\tDEDUPED\tDURATION\tERROR")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
				r.Pipeline, r.Processed, r.Saved, r.Quarantined, r.Deduped,
				time.Duration(r.DurationSeconds*float64(time.Second)).Round(time.Millisecond), r.Error)
		}
		return tw.Flush()
	default:
		return errors.Newf(errors.ErrorTypeConfiguration, "unknown output format %q", format)
	}
}

func printDiagnostics(w io.Writer, ds errors.Diagnostics) {
	for _, d := range ds {
		fmt.Fprintf(w, "  - [%s] %s\n", d.Type, d.String())
	}
}
