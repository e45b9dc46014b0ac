package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"buildtrack/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "buildtrack",
		Short:         "Offline tools for BuildTrack daily progress reports",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExportCmd())
	return root
}
