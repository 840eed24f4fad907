package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ovasquez/facet/pkg/skeleton"
	"github.com/ovasquez/facet/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <skeleton.xml>",
	Short: "Regenerate reports whenever the skeleton file changes",
	Long: `Watches the skeleton file and reruns report generation after each
change settles. Stops on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringSliceP("metrics", "m", nil, "Metrics to generate (default: all built-ins, or config)")
	watchCmd.Flags().StringP("dir", "d", "", "Report output directory (default from config)")
	watchCmd.Flags().Float64("mean", 0.5, "Mean used to derive color thresholds")
	watchCmd.Flags().Float64("sigma", 0.1, "Sigma used to derive color thresholds")
	watchCmd.Flags().Bool("no-cache", false, "Disable measurement caching")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period before regenerating")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts, err := resolveGenerateOptions(cmd, cfg)
	if err != nil {
		return err
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	watcher, err := watch.NewWatcher(args[0], debounce)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	regenerate := func(path string) {
		skel, err := skeleton.Load(path)
		if err != nil {
			color.Red("Skeleton is unreadable: %v", err)
			return
		}
		if err := generateReports(ctx, skel, opts); err != nil {
			color.Red("Generation failed: %v", err)
			return
		}
		color.Green("Reports updated in %s", opts.dir)
	}

	// Generate once up front so the output directory is never stale.
	regenerate(args[0])

	watcher.SetCallback(regenerate)
	watcher.SetErrorHandler(func(err error) {
		color.Red("Watch error: %v", err)
	})

	color.Cyan("Watching %s... press Ctrl+C to stop", args[0])
	if err := watcher.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
