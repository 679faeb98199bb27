package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"scribe2clips/internal/config"
	"scribe2clips/internal/logging"
)

var (
	verbose    bool
	quiet      bool
	logFormat  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "scribe2clips",
	Short: "Turn word-level speech transcripts into labeled training clips",
	Long: `Scribe2Clips turns raw word-level speech transcripts plus their source audio
into curated sets of labeled audio clips. Word tokens are merged into
sentence-level spans, reviewed and rated externally, then validated and
sliced out of the source audio into indexed clips with a per-file manifest.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	logging.Setup(logging.Options{Level: level, Format: logFormat})
}

// loadConfig resolves the configuration for a command working in dir,
// honoring an explicit --config path.
func loadConfig(dir string) (*config.Config, error) {
	return config.Load(configPath, dir)
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json (default: detect)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to "+config.Filename)
}
