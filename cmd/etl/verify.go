package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"songwarehouse/internal/datasource"
	"songwarehouse/internal/schema"
	"songwarehouse/internal/warehouse"
)

// errVerifyFailed is returned when at least one table fails verification.
var errVerifyFailed = errors.New("warehouse verification failed")

func newVerifyCommand(g *globals, stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "re-read every published file and check it against its table manifest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				p, err := g.pipeline()
				if err != nil {
					return err
				}
				output = p.Output.URL
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := datasource.Open(ctx, output)
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			return verifyTables(ctx, store, stdout, stderr, g.log)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "warehouse root; defaults to output.url of the pipeline file")
	return cmd
}

func verifyTables(ctx context.Context, store datasource.Store, stdout, stderr io.Writer, log *zap.Logger) error {
	failed := 0
	for _, t := range schema.Tables() {
		m, err := warehouse.Verify(ctx, store, t.Dir)
		if err != nil {
			failed++
			fmt.Fprintf(stderr, "FAIL %s: %v\n", t.Name, err)
			continue
		}
		fmt.Fprintf(stdout, "ok   %s: %s rows in %d files (%s), run %s\n",
			t.Name, humanize.Comma(m.Rows), len(m.Files), humanize.Bytes(uint64(m.Bytes)), m.RunID)
	}
	if failed > 0 {
		if log != nil {
			log.Error("verify: tables failed", zap.Int("failed", failed))
		}
		return errVerifyFailed
	}
	return nil
}

func init() {
	subcommandFns["verify"] = newVerifyCommand
}
