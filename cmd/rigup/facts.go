package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigup-sh/rigup/internal/facts"
)

func newFactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facts",
		Short: "Print the host facts snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hostFacts, err := gatherFacts(cmd.Context())
			if err != nil {
				return err
			}
			printFacts(cmd, hostFacts)
			return nil
		},
	}
}

func printFacts(cmd *cobra.Command, hostFacts *facts.Facts) {
	virt := hostFacts.Virtualization
	if virt == "" {
		virt = "unknown"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-15s %s\n", "os:", hostFacts.OS.ID)
	fmt.Fprintf(out, "%-15s %s\n", "version:", hostFacts.OS.VersionID)
	fmt.Fprintf(out, "%-15s %s\n", "pretty name:", hostFacts.OS.PrettyName)
	fmt.Fprintf(out, "%-15s %s\n", "architecture:", hostFacts.Arch)
	fmt.Fprintf(out, "%-15s %s\n", "kernel:", hostFacts.Kernel)
	fmt.Fprintf(out, "%-15s %s\n", "virtualization:", virt)
	fmt.Fprintf(out, "%-15s %t\n", "nvidia gpu:", hostFacts.HasNvidiaGPU)
}
