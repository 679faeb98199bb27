package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"scribe2clips/internal/worker"
)

var watchCmd = &cobra.Command{
	Use:   "watch <folder>",
	Short: "Watch a working folder and process annotation files as they change",
	Long: `Watch a working folder and run the clip pipeline on annotation files as
they are created or modified. The audio source is discovered and probed once
at start. Tuning comes from the config file; Ctrl-C exits cleanly.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return worker.Watch(ctx, worker.Options{
		Dir:         dir,
		SampleRate:  cfg.Clips.SampleRate,
		Channels:    cfg.Clips.Channels,
		MinDuration: cfg.Clips.MinDuration,
		Ratings:     cfg.Clips.Ratings,
		FFmpeg:      cfg.Tools.FFmpeg,
		FFprobe:     cfg.Tools.FFprobe,
	})
}
