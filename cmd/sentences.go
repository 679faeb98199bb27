package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe2clips/internal/config"
	"scribe2clips/internal/pipeline"
	"scribe2clips/internal/transcript"
)

var sentencesCmd = &cobra.Command{
	Use:   "sentences <transcript.json> <annotation.json>",
	Short: "Merge word-level transcript tokens into sentence spans",
	Long: `Merge the word-level tokens of a raw transcript into sentence-level spans
for one speaker and write them as an annotation file. A sentence closes at a
terminal punctuation mark or after a long enough pause between words.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSentences,
}

var (
	speaker           string
	listSpeakers      bool
	pauseThreshold    float64
	terminators       string
	minSpeakerRecords int
)

func init() {
	defaults := config.Default()

	sentencesCmd.Flags().StringVarP(&speaker, "speaker", "s", defaults.Sentences.Speaker, "speaker_id to keep (empty keeps all tokens)")
	sentencesCmd.Flags().BoolVar(&listSpeakers, "list-speakers", false, "list speaker candidates and exit")
	sentencesCmd.Flags().Float64Var(&pauseThreshold, "pause-threshold", defaults.Sentences.PauseThreshold, "pause in seconds that starts a new sentence (<= 0 disables)")
	sentencesCmd.Flags().StringVar(&terminators, "terminators", defaults.Sentences.Terminators, "runes that close a sentence")
	sentencesCmd.Flags().IntVar(&minSpeakerRecords, "min-speaker-records", defaults.Sentences.MinSpeakerRecords, "minimum token count for --list-speakers candidates")

	rootCmd.AddCommand(sentencesCmd)
}

func runSentences(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(filepath.Dir(args[0]))
	if err != nil {
		return err
	}
	applySentenceFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	tokens, err := transcript.Load(args[0])
	if err != nil {
		return err
	}

	if listSpeakers {
		stats := transcript.Speakers(tokens, cfg.Sentences.MinSpeakerRecords)
		if len(stats) == 0 {
			return fmt.Errorf("no speakers with at least %d tokens", cfg.Sentences.MinSpeakerRecords)
		}
		for _, s := range stats {
			if s.Name != "" {
				fmt.Printf("%s (%s): %d tokens\n", s.ID, s.Name, s.Count)
			} else {
				fmt.Printf("%s: %d tokens\n", s.ID, s.Count)
			}
		}
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("output annotation path required")
	}

	spans := pipeline.Normalize(tokens, pipeline.NormalizerOptions{
		Speaker:        cfg.Sentences.Speaker,
		PauseThreshold: cfg.Sentences.PauseThreshold,
		Terminators:    cfg.Sentences.Terminators,
	})
	if len(spans) == 0 {
		return fmt.Errorf("no sentences produced, check --speaker against --list-speakers")
	}

	if err := pipeline.SaveAnnotation(args[1], spans); err != nil {
		return err
	}

	slog.Info("annotation saved", "path", args[1], "sentences", len(spans))
	return nil
}

func applySentenceFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("speaker") {
		cfg.Sentences.Speaker = speaker
	}
	if cmd.Flags().Changed("pause-threshold") {
		cfg.Sentences.PauseThreshold = pauseThreshold
	}
	if cmd.Flags().Changed("terminators") {
		cfg.Sentences.Terminators = terminators
	}
	if cmd.Flags().Changed("min-speaker-records") {
		cfg.Sentences.MinSpeakerRecords = minSpeakerRecords
	}
}
