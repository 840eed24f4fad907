package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ovasquez/facet/internal/output"
	"github.com/ovasquez/facet/internal/validate"
	"github.com/ovasquez/facet/pkg/metric"
)

var validateCmd = &cobra.Command{
	Use:   "validate <report-dir | report.xml ...>",
	Short: "Validate existing report artifacts against the metric schema",
	Long: `Checks previously generated XML reports against the metric schema.
Given a directory, every *.xml file in it is checked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := collectReportPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no report XML files found in %s", strings.Join(args, ", "))
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), getOutputFile(cmd), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	type fileResult struct {
		Path       string               `json:"path"`
		Valid      bool                 `json:"valid"`
		Violations []validate.Violation `json:"violations,omitempty"`
		Err        string               `json:"error,omitempty"`
	}

	var results []fileResult
	invalid := 0
	for _, path := range paths {
		res := fileResult{Path: path}

		data, err := os.ReadFile(path)
		if err != nil {
			res.Err = err.Error()
			invalid++
			results = append(results, res)
			continue
		}
		doc, err := metric.DecodeXML(data)
		if err != nil {
			res.Err = err.Error()
			invalid++
			results = append(results, res)
			continue
		}

		check, err := validate.Check(doc)
		if err != nil {
			return fmt.Errorf("%s: validation did not run: %w", path, err)
		}
		res.Valid = check.Valid()
		res.Violations = check.Violations
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}

	var rows [][]string
	for _, res := range results {
		status := output.MetricColor("green", "valid")
		detail := ""
		switch {
		case res.Err != "":
			status = output.MetricColor("red", "unreadable")
			detail = res.Err
		case !res.Valid:
			status = output.MetricColor("red", "invalid")
			detail = fmt.Sprintf("%d violations", len(res.Violations))
		}
		rows = append(rows, []string{res.Path, status, detail})
	}
	table := output.NewTable(
		"Report Validation",
		[]string{"File", "Status", "Detail"},
		rows,
		[]string{fmt.Sprintf("Checked: %d", len(results)), fmt.Sprintf("Invalid: %d", invalid)},
		results,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if verbose {
		for _, res := range results {
			for _, v := range res.Violations {
				formatter.Warning("%s: %s: %s", res.Path, v.Path, v.Message)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d reports failed validation", invalid, len(results))
	}
	formatter.Success("All %d reports are valid", len(results))
	return nil
}

// collectReportPaths expands directory arguments into their *.xml
// files and keeps file arguments as-is.
func collectReportPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
				continue
			}
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
