package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"scribe2clips/internal/config"
	"scribe2clips/internal/worker"
)

var processCmd = &cobra.Command{
	Use:   "process <folder>",
	Short: "Validate annotation spans and slice clips out of the source audio",
	Long: `Process a working folder holding exactly one audio source file plus one or
more annotation JSON files. Every annotation file's spans are validated and
sliced into indexed clips under <stem>/, with a metadata.json manifest per
file. Files are independent: one file's failure never stops its siblings.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

var (
	workers     int
	sampleRate  int
	channels    int
	minDuration float64
	ratings     []string
	writeConfig bool
)

func init() {
	defaults := config.Default()

	processCmd.Flags().IntVarP(&workers, "workers", "j", defaults.Clips.Workers, "annotation files processed in parallel")
	processCmd.Flags().IntVar(&sampleRate, "sample-rate", defaults.Clips.SampleRate, "clip sample rate in Hz")
	processCmd.Flags().IntVar(&channels, "channels", defaults.Clips.Channels, "clip channel count")
	processCmd.Flags().Float64Var(&minDuration, "min-duration", defaults.Clips.MinDuration, "minimum clip duration in seconds (<= 0 disables)")
	processCmd.Flags().StringSliceVar(&ratings, "ratings", defaults.Clips.Ratings, "ratings to process (empty keeps all)")
	processCmd.Flags().BoolVar(&writeConfig, "write-config", false, "write a sample "+config.Filename+" into the folder and exit")

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("working folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a working folder: %s", args[0])
	}

	if writeConfig {
		path, err := config.WriteSample(dir)
		if err != nil {
			return err
		}
		slog.Info("sample config written", "path", path)
		return nil
	}

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	applyClipFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup signal handling for graceful cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := worker.Run(ctx, worker.Options{
		Dir:         dir,
		Workers:     cfg.Clips.Workers,
		SampleRate:  cfg.Clips.SampleRate,
		Channels:    cfg.Clips.Channels,
		MinDuration: cfg.Clips.MinDuration,
		Ratings:     cfg.Clips.Ratings,
		FFmpeg:      cfg.Tools.FFmpeg,
		FFprobe:     cfg.Tools.FFprobe,
	})
	if err != nil {
		return err
	}

	printSummary(results)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d annotation files failed", failed, len(results))
	}

	if !quiet {
		slog.Info("done", "files", len(results))
	}
	return nil
}

func applyClipFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Clips.Workers = workers
	}
	if cmd.Flags().Changed("sample-rate") {
		cfg.Clips.SampleRate = sampleRate
	}
	if cmd.Flags().Changed("channels") {
		cfg.Clips.Channels = channels
	}
	if cmd.Flags().Changed("min-duration") {
		cfg.Clips.MinDuration = minDuration
	}
	if cmd.Flags().Changed("ratings") {
		cfg.Clips.Ratings = ratings
	}
}

// printSummary renders the per-file run summary as a table when stdout is a
// terminal. The same outcomes are always logged by the worker.
func printSummary(results []worker.FileResult) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"File", "Clips", "Skipped", "Status"})
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = "failed"
		}
		tw.AppendRow(table.Row{filepath.Base(res.File), res.Clips, res.Skipped, status})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	tw.Render()
}
