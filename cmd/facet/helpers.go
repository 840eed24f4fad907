package main

import (
	"github.com/spf13/cobra"

	"github.com/ovasquez/facet/pkg/config"
)

// loadConfig loads the file given by --config, or searches the
// standard locations.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadOrDefault(), nil
}

func getFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("format")
	return format
}

func getOutputFile(cmd *cobra.Command) string {
	output, _ := cmd.Flags().GetString("output")
	return output
}
