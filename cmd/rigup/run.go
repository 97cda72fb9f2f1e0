package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rigup-sh/rigup/internal/config"
	"github.com/rigup-sh/rigup/internal/consent"
	"github.com/rigup-sh/rigup/internal/engine"
	"github.com/rigup-sh/rigup/internal/facts"
	"github.com/rigup-sh/rigup/internal/logger"
	"github.com/rigup-sh/rigup/internal/preflight"
	"github.com/rigup-sh/rigup/internal/report"
	"github.com/rigup-sh/rigup/internal/tui"
	"github.com/rigup-sh/rigup/internal/validation"
)

// Seams for tests; the defaults touch the live host.
var (
	gatherFacts = func(ctx context.Context) (*facts.Facts, error) {
		return facts.NewGatherer().Gather(ctx)
	}
	ensurePrivileges  = preflight.EnsurePrivileges
	releasePrivileges = preflight.ReleasePrivileges
)

// runProvision is the bare `rigup` invocation: gather facts, preflight,
// consent, run the pipeline, then report.
func runProvision(cmd *cobra.Command, flags *rootFlags) error {
	log, err := newLogger(flags)
	if err != nil {
		return err
	}

	manifest, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	hostFacts, err := gatherFacts(ctx)
	if err != nil {
		return fmt.Errorf("gather host facts: %w", err)
	}

	if err := preflight.Check(hostFacts, manifest.Requires); err != nil {
		return err
	}

	if !flags.dryRun {
		if err := ensurePrivileges(ctx); err != nil {
			return err
		}
		defer releasePrivileges()
	}

	interactive := consent.IsInteractive(cmd.InOrStdin(), cmd.OutOrStdout())

	if !flags.dryRun && !flags.yes {
		proceed, err := consent.Ask(cmd.InOrStdin(), cmd.OutOrStdout(), interactive, engine.Preview(manifest))
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes made.")
			return nil
		}
	}

	execCtx := &engine.ExecutionContext{
		Manifest: manifest,
		Facts:    hostFacts,
		DryRun:   flags.dryRun,
		Verbose:  flags.verbose,
		Logger:   log,
		Context:  ctx,
	}

	var program *tea.Program
	var programErr error
	done := make(chan struct{})

	if interactive && !flags.dryRun {
		program = tea.NewProgram(tui.NewModel(manifest, flags.dryRun, cancel))
		execCtx.Observer = tui.NewBridge(program)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	} else {
		execCtx.Observer = &tui.PlainObserver{Out: cmd.OutOrStdout()}
	}

	runReport, runErr := engine.New().Run(execCtx)

	if program != nil {
		program.Send(tui.DoneMsg{})
		<-done
		if programErr != nil {
			log.Error(programErr, "progress display error")
		}
	}

	if runErr != nil {
		// Fatal halt: the step error is the final output, never a summary.
		return runErr
	}

	var validationResults []validation.Result
	var valErr error
	if !flags.dryRun && len(manifest.Validations) > 0 {
		validationResults, valErr = validation.RunValidations(ctx, manifest.Validations)
	}

	summary := report.Render(report.Data{
		ManifestName: manifest.Name,
		Report:       runReport,
		Validations:  validationResults,
		DryRun:       flags.dryRun,
	})
	fmt.Fprintln(cmd.OutOrStdout(), summary)

	return valErr
}

func newLogger(flags *rootFlags) (*logger.Logger, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: true})
}
