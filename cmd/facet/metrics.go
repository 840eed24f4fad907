package main

import (
	"github.com/spf13/cobra"

	"github.com/ovasquez/facet/internal/output"
	"github.com/ovasquez/facet/pkg/calculus"
)

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Aliases: []string{"list"},
	Short:   "List the built-in metrics",
	RunE:    runMetrics,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), getOutputFile(cmd), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	names := calculus.Names()
	var rows [][]string
	data := make([]map[string]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, calculus.Describe(name)})
		data = append(data, map[string]string{
			"name":        name,
			"description": calculus.Describe(name),
		})
	}

	table := output.NewTable(
		"Built-in Metrics",
		[]string{"Name", "Description"},
		rows,
		nil,
		data,
	)
	return formatter.Output(table)
}
