package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/engine"
	"github.com/rigup-sh/rigup/internal/preflight"
	"github.com/rigup-sh/rigup/internal/report"
	"github.com/rigup-sh/rigup/internal/tui"
)

func newPlanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would change without touching the host",
		Long: `plan evaluates every step against the current host state and reports what
a real run would do. It never mutates anything, never prompts, and never
asks for sudo; probes that require privileges may report a failed
evaluation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, flags)
		},
	}
}

func runPlan(cmd *cobra.Command, flags *rootFlags) error {
	log, err := newLogger(flags)
	if err != nil {
		return err
	}

	manifest, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	hostFacts, err := gatherFacts(cmd.Context())
	if err != nil {
		return fmt.Errorf("gather host facts: %w", err)
	}

	if err := preflight.Check(hostFacts, manifest.Requires); err != nil {
		return err
	}

	execCtx := &engine.ExecutionContext{
		Manifest: manifest,
		Facts:    hostFacts,
		DryRun:   true,
		Verbose:  flags.verbose,
		Logger:   log,
		Context:  cmd.Context(),
		Observer: &tui.PlainObserver{Out: cmd.OutOrStdout()},
	}

	runReport, runErr := engine.New().Run(execCtx)
	if runErr != nil {
		return runErr
	}

	summary := report.Render(report.Data{
		ManifestName: manifest.Name,
		Report:       runReport,
		DryRun:       true,
	})
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	return nil
}
