package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "tally",
		Short:        "Assessment scoring and compatibility engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newRecalcCmd(&configPath),
		newCatalogCmd(),
		newSeedCmd(&configPath),
	)
	return rootCmd
}
