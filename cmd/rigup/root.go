package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	verbose    bool
	dryRun     bool
	yes        bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "rigup",
		Short:         "rigup provisions a fresh Ubuntu workstation from an ordered step manifest",
		Long: `rigup takes a host that just finished the OS installer and walks it through
an ordered provisioning manifest: package updates, firewall, services,
desktop applications, shell setup and drivers. Steps run strictly in order;
a fatal step failure stops the run, a non-fatal one degrades to a warning.

Without a subcommand, rigup validates the host, asks for consent and applies
the manifest (the embedded Ubuntu baseline unless --config points elsewhere).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to a manifest file (default: the embedded baseline)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Evaluate steps without making changes")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Skip the consent prompt")

	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newFactsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
