package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songwarehouse/internal/config"
	"songwarehouse/internal/etl"
	"songwarehouse/internal/tracing"
)

type runFlags struct {
	input          string
	output         string
	timeout        time.Duration
	metricsBackend string
	pushgatewayURL string
	datadogAddr    string
}

func newRunCommand(g *globals, stdout, stderr io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "build and publish the warehouse tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.pipeline()
			if err != nil {
				return err
			}
			f.apply(&p)
			if err := checkPipeline(p, stderr); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			shutdown := tracing.Init(ctx, g.log, tracing.Config{ServiceName: "songwarehouse", Version: Version})
			defer func() {
				if err := shutdown(context.WithoutCancel(ctx)); err != nil {
					g.log.Warn("tracing: shutdown failed", zap.Error(err))
				}
			}()
			flush := setupMetrics(f.metricsBackend, f.pushgatewayURL, f.datadogAddr, p.Job, g.log)
			defer flush()

			sum, err := execute(ctx, p, g.log)
			if err != nil {
				return err
			}
			printSummary(stdout, sum)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "input root; overrides input.url")
	fl.StringVar(&f.output, "output", "", "warehouse root; overrides output.url")
	fl.DurationVar(&f.timeout, "timeout", 0, "run deadline; overrides runtime.timeout")
	fl.StringVar(&f.metricsBackend, "metrics-backend", "none", "metrics backend: none, pushgateway, datadog")
	fl.StringVar(&f.pushgatewayURL, "pushgateway-url", "http://localhost:9091", "Pushgateway base URL")
	fl.StringVar(&f.datadogAddr, "datadog-addr", "127.0.0.1:8125", "DogStatsD address")
	return cmd
}

func (f runFlags) apply(p *config.Pipeline) {
	if f.input != "" {
		p.Input.URL = f.input
	}
	if f.output != "" {
		p.Output.URL = f.output
	}
	if f.timeout > 0 {
		p.Runtime.Timeout = f.timeout
	}
}

func printSummary(w io.Writer, sum etl.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s finished in %s\n", sum.RunID, sum.Duration.Truncate(time.Millisecond))
	fmt.Fprintln(tw, "TABLE\tDIR\tROWS\tFILES\tSIZE\tMIRRORED")
	for _, m := range sum.Tables {
		mirrored := "-"
		if n, ok := sum.Mirrored[m.Table]; ok {
			mirrored = humanize.Comma(n)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.Table, m.Dir, humanize.Comma(m.Rows), len(m.Files), humanize.Bytes(uint64(m.Bytes)), mirrored)
	}
	_ = tw.Flush()
}

func init() {
	subcommandFns["run"] = newRunCommand
}
