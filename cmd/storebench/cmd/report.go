package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/storebench/internal/common/util"
	"github.com/armadaproject/storebench/internal/storebench/reporter"
	"github.com/armadaproject/storebench/internal/storebench/resultlog"
)

type reportOptions struct {
	csv          bool
	output       string
	rpsHistogram string
}

func (o *reportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.csv, "csv", false, "write the report as a single CSV row instead of text")
	cmd.Flags().StringVar(&o.output, "report", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&o.rpsHistogram, "rps-histogram", "", "write completed requests per second as CSV to this file")
	cmd.Flags().Float64("percentile", 0, "latency percentile to report (default 95)")
}

func reportCmd() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report ./results.log.gz",
		Short: "Report on the results of an earlier run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeReports(args[0], config.Master.Percentile, opts)
		},
	}
	opts.addFlags(cmd)
	return cmd
}

func writeReports(path string, percentile float64, opts *reportOptions) error {
	in, err := resultlog.Open(path)
	if err != nil {
		return err
	}
	defer util.CloseResource("result log", in)

	stats, err := reporter.Compute(in.Scenario(), in, percentile)
	if err != nil {
		return err
	}
	if stats.Skipped > 0 {
		log.Warnf("%d results in %s could not be used", stats.Skipped, path)
	}

	err = writeTo(opts.output, func(w io.Writer) error {
		if opts.csv {
			return reporter.WriteCSVReport(w, stats)
		}
		return reporter.WriteTextReport(w, stats)
	})
	if err != nil {
		return err
	}
	if opts.rpsHistogram != "" {
		return writeTo(opts.rpsHistogram, func(w io.Writer) error {
			return reporter.WriteRPSHistogram(w, stats)
		})
	}
	return nil
}

// writeTo hands render a file at path, or stdout when path is empty.
func writeTo(path string, render func(w io.Writer) error) error {
	if path == "" {
		return render(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := render(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}
