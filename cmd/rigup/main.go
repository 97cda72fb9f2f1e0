package main

import (
	"fmt"
	"os"

	"github.com/rigup-sh/rigup/internal/plugins"
)

func main() {
	if err := plugins.RegisterDefaults(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register action plugins: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
