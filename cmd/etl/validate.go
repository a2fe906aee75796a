package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"songwarehouse/internal/config"
)

// errInvalidConfig is returned when validation reports at least one error.
var errInvalidConfig = errors.New("configuration is invalid")

func newValidateCommand(g *globals, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "check the pipeline file and exit",
		RunE: func(*cobra.Command, []string) error {
			p, err := g.pipeline()
			if err != nil {
				return err
			}
			if err := checkPipeline(p, stderr); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "configuration is valid: %s\n", orDefaults(g.configPath))
			return nil
		},
	}
}

// checkPipeline prints every issue to w and fails when any is an error.
func checkPipeline(p config.Pipeline, w io.Writer) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return errInvalidConfig
	}
	return nil
}

func orDefaults(path string) string {
	if path == "" {
		return "(defaults and environment)"
	}
	return path
}

func init() {
	subcommandFns["validate"] = newValidateCommand
}
