package cli

import (
	"fmt"
	"path/filepath"

	"github.com/mgpai22/autosub/internal/audio"
	"github.com/mgpai22/autosub/internal/config"
	"github.com/mgpai22/autosub/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var generateCmd = &cobra.Command{
	Use:   "generate [media_file]",
	Short: "Generate subtitles for an audio or video file",
	Long: `Generate subtitles for the specified audio or video file.

The audio track is extracted as 16 kHz mono WAV, optionally split into
fixed-length chunks, transcribed one chunk at a time and, when a target
language is given, translated segment by segment. A chunk that fails is
skipped; a segment that cannot be translated keeps its original text.

Flags override values from the config file only when set explicitly.

Examples:
  autosub generate video.mp4
  autosub generate talk.mkv -m small -t es
  autosub generate podcast.mp3 -d 300 -f vtt --no-translate
  autosub generate interview.mp4 --engine openai -t de --provider deepl`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	registerGenerateFlags(generateCmd.Flags())
}

func registerGenerateFlags(f *pflag.FlagSet) {
	f.String("engine", "whispercpp", "Transcription engine (whispercpp, openai, gemini)")
	f.StringP("model", "m", "base", "Model size (tiny..large), ggml model path, or API model id")
	f.String("engine-api-key", "", "API key for the transcription engine (or OPENAI_API_KEY/GEMINI_API_KEY)")
	f.StringP("lang", "t", "", "Target language for translation, e.g. es or zh-CN (empty = no translation)")
	f.Bool("no-translate", false, "Skip translation even if a target language is configured")
	f.String("provider", "google", "Translation provider (google, deepl, openai, anthropic, gemini)")
	f.StringP("api-key", "k", "", "API key for the translation provider")
	f.StringP("format", "f", "srt", "Output subtitle format (srt, vtt)")
	f.Float64P("chunk-duration", "d", 0, "Chunk duration in seconds (0 = no splitting)")
	f.Int("workers", 1, "Number of transcription workers (must be 1)")
	f.Bool("keep-temp", false, "Keep extracted audio and chunk files")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyGenerateFlags(cmd.Flags(), cfg); err != nil {
		return err
	}
	cfg.ResolveCredentials()

	if !audio.IsMediaFile(source) {
		logger.Warnw("Unrecognized media extension, trying anyway",
			"ext", filepath.Ext(source),
		)
	}

	logger.Infow("Starting subtitle generation",
		"input", source,
		"engine", cfg.Transcription.Engine,
		"model", cfg.Transcription.Model,
		"chunk_duration", cfg.Transcription.ChunkDuration,
		"target_language", cfg.Translation.TargetLanguage,
	)

	if err := cfg.Validate(); err != nil {
		return err
	}
	// fail on a bad input before ffmpeg lookup, which may download binaries
	if err := pipeline.CheckSource(source); err != nil {
		return err
	}

	tool, err := newMediaTool(cmd.Context())
	if err != nil {
		return err
	}

	driver := pipeline.NewDriver(tool, logger)
	result, err := driver.Run(cmd.Context(), source, *cfg)
	if err != nil {
		return fmt.Errorf("subtitle generation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), pipeline.Summary(result))
	return nil
}

// applyGenerateFlags overlays explicitly set flags on cfg.
func applyGenerateFlags(flags *pflag.FlagSet, cfg *config.Pipeline) error {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}

	str("engine", &cfg.Transcription.Engine)
	str("model", &cfg.Transcription.Model)
	str("engine-api-key", &cfg.Transcription.APIKey)
	str("lang", &cfg.Translation.TargetLanguage)
	str("provider", &cfg.Translation.Provider)
	str("api-key", &cfg.Translation.APIKey)
	str("format", &cfg.Output.Format)
	str("output", &cfg.Output.Path)

	if flags.Changed("chunk-duration") {
		cfg.Transcription.ChunkDuration, _ = flags.GetFloat64("chunk-duration")
	}
	if flags.Changed("workers") {
		cfg.Transcription.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("keep-temp") {
		cfg.Output.KeepTemp, _ = flags.GetBool("keep-temp")
	}
	if noTranslate, _ := flags.GetBool("no-translate"); noTranslate {
		cfg.Translation.TargetLanguage = ""
	}

	return cfg.Normalize()
}
