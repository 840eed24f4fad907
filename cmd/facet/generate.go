package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/ovasquez/facet/internal/cache"
	"github.com/ovasquez/facet/internal/output"
	"github.com/ovasquez/facet/internal/progress"
	"github.com/ovasquez/facet/internal/report"
	"github.com/ovasquez/facet/pkg/calculus"
	"github.com/ovasquez/facet/pkg/config"
	"github.com/ovasquez/facet/pkg/skeleton"
)

var generateCmd = &cobra.Command{
	Use:     "generate <skeleton.xml>",
	Aliases: []string{"gen"},
	Short:   "Generate per-metric reports from a skeleton file",
	Long: `Reads a class skeleton and writes one XML artifact plus one HTML
view per metric into the output directory. Reports for different
metrics are generated concurrently.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringSliceP("metrics", "m", nil, "Metrics to generate (default: all built-ins, or config)")
	generateCmd.Flags().StringP("dir", "d", "", "Report output directory (default from config)")
	generateCmd.Flags().Float64("mean", report.DefaultMean, "Mean used to derive color thresholds")
	generateCmd.Flags().Float64("sigma", report.DefaultSigma, "Sigma used to derive color thresholds")
	generateCmd.Flags().Bool("no-cache", false, "Disable measurement caching")

	rootCmd.AddCommand(generateCmd)
}

// generateOptions is the resolved generation request shared by the
// generate and watch commands.
type generateOptions struct {
	metrics []string
	dir     string
	mean    float64
	sigma   float64
	params  map[string]any
	store   *cache.Cache
	quiet   bool
}

// resolveGenerateOptions merges flags over config.
func resolveGenerateOptions(cmd *cobra.Command, cfg *config.Config) (*generateOptions, error) {
	opts := &generateOptions{
		metrics: cfg.Report.Metrics,
		dir:     cfg.Report.Output,
		mean:    cfg.Report.Mean,
		sigma:   cfg.Report.Sigma,
		params:  cfg.Report.Params,
	}

	if flagMetrics, _ := cmd.Flags().GetStringSlice("metrics"); len(flagMetrics) > 0 {
		opts.metrics = flagMetrics
	}
	if len(opts.metrics) == 0 {
		opts.metrics = calculus.Names()
	}
	for _, name := range opts.metrics {
		if !calculus.Known(name) {
			return nil, fmt.Errorf("unknown metric %q (built-ins: %v)", name, calculus.Names())
		}
	}

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		opts.dir = dir
	}
	if cmd.Flags().Changed("mean") {
		opts.mean, _ = cmd.Flags().GetFloat64("mean")
	}
	if cmd.Flags().Changed("sigma") {
		opts.sigma, _ = cmd.Flags().GetFloat64("sigma")
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	if cfg.Cache.Enabled && !noCache {
		store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		opts.store = store
	}

	return opts, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := resolveGenerateOptions(cmd, cfg)
	if err != nil {
		return err
	}

	skel, err := skeleton.Load(args[0])
	if err != nil {
		return err
	}

	if err := generateReports(cmd.Context(), skel, opts); err != nil {
		return err
	}

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(cmd)), getOutputFile(cmd), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	var rows [][]string
	for _, name := range opts.metrics {
		rows = append(rows, []string{name, name + ".xml", name + ".html"})
	}
	table := output.NewTable(
		"Generated Reports",
		[]string{"Metric", "XML", "HTML"},
		rows,
		nil,
		map[string]any{"directory": opts.dir, "metrics": opts.metrics},
	)
	if err := formatter.Output(table); err != nil {
		return err
	}
	formatter.Success("Wrote %d reports to %s", len(opts.metrics), opts.dir)
	return nil
}

// generateReports runs the report pipeline for every requested metric
// concurrently, collecting per-metric failures.
func generateReports(ctx context.Context, skel *skeleton.Document, opts *generateOptions) error {
	if err := os.MkdirAll(opts.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tracker := progress.NewTracker("Generating reports", len(opts.metrics), opts.quiet)

	wg := conc.NewWaitGroup()
	var errs []error
	var errMu sync.Mutex

	for _, name := range opts.metrics {
		wg.Go(func() {
			defer tracker.Tick()

			r, err := report.New(skel, name, calculus.NewBuiltin(),
				report.WithParams(opts.params),
				report.WithThresholds(opts.mean, opts.sigma),
				report.WithCache(opts.store),
			)
			if err == nil {
				err = r.Save(ctx, opts.dir)
			}
			if err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		})
	}
	wg.Wait()

	if len(errs) > 0 {
		tracker.FinishError(errors.Join(errs...))
		return errors.Join(errs...)
	}
	tracker.FinishSuccess()
	return nil
}
