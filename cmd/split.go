package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"scribe2clips/internal/pipeline"
)

var splitCmd = &cobra.Command{
	Use:   "split <annotation.json>",
	Short: "Shard a rated annotation file into one file per rating",
	Long: `Split a reviewed annotation file into <stem>_<rating>.json shards, one per
rating present, preserving span order within each shard. Spans without a
rating land in the unrated shard.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	spans, err := pipeline.LoadAnnotation(args[0])
	if err != nil {
		return err
	}

	written, err := pipeline.SplitByRating(args[0], spans)
	if err != nil {
		return err
	}

	for _, path := range written {
		slog.Info("rating shard saved", "path", path)
	}
	return nil
}
