package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/autosub/internal/config"
	"github.com/mgpai22/autosub/internal/subtitle"
	"github.com/mgpai22/autosub/internal/translate"
	"github.com/spf13/cobra"
)

var translateCmd = &cobra.Command{
	Use:   "translate [subtitle_file]",
	Short: "Translate an existing SRT or VTT subtitle file",
	Long: `Translate an existing subtitle file segment by segment.

Each segment is sent to the provider separately and retried on failure;
a segment that still fails keeps its original text. Timing is unchanged.

The --overlay flag creates bilingual subtitles with the translated text
first, followed by the original text on the next line.

Examples:
  autosub translate video.srt -t ja
  autosub translate video.vtt -t es --provider deepl -k KEY
  autosub translate video.srt -t fr --overlay -o video.bilingual.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().
		StringP("lang", "t", "", "Target language, e.g. es or pt-BR (required)")
	translateCmd.Flags().
		StringP("source-language", "l", "", "Language of the input text (default auto-detect)")
	translateCmd.Flags().
		Bool("overlay", false, "Overlay translated text with original (bilingual subtitles)")
	translateCmd.Flags().
		String("provider", "google", "Translation provider (google, deepl, openai, anthropic, gemini)")
	translateCmd.Flags().
		StringP("api-key", "k", "", "API key for the provider (or set its env var)")
	translateCmd.Flags().
		String("model", "", "Model for LLM providers (provider default when empty)")
	translateCmd.Flags().
		String("prompt", "", "Extra instructions for LLM providers")

	_ = translateCmd.MarkFlagRequired("lang")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	subtitlePath := args[0]
	ctx := cmd.Context()

	overlay, _ := cmd.Flags().GetBool("overlay")
	inputLang, _ := cmd.Flags().GetString("source-language")
	prompt, _ := cmd.Flags().GetString("prompt")
	outputPath, _ := cmd.Flags().GetString("output")

	if _, err := os.Stat(subtitlePath); os.IsNotExist(err) {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyTranslateFlags(cmd, cfg); err != nil {
		return err
	}
	cfg.ResolveCredentials()
	if err := cfg.Validate(); err != nil {
		return err
	}

	target, err := translate.ParseLanguage(cfg.Translation.TargetLanguage)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(subtitlePath))
	if outputPath == "" {
		outputPath = translatedPath(subtitlePath, target.String(), overlay)
	}

	logger.Infow("Parsing subtitle file", "input", subtitlePath)
	subFile, err := subtitle.Open(subtitlePath)
	if err != nil {
		return fmt.Errorf("failed to parse subtitle file: %w", err)
	}

	segments := subFile.Segments()
	if len(segments) == 0 {
		return fmt.Errorf("subtitle file contains no entries")
	}

	logger.Infow("Parsed subtitle file",
		"entries", len(segments),
		"format", subFile.Format(),
	)

	backend, err := translate.NewBackend(ctx, translate.Provider(cfg.Translation.Provider), cfg.Translation.APIKey, translate.Options{
		InputLanguage: inputLang,
		Model:         cfg.Translation.Model,
		Prompt:        prompt,
	})
	if err != nil {
		return fmt.Errorf("failed to create translator: %w", err)
	}

	retrier := translate.NewRetrier(backend, translate.DefaultRetryOptions(), logger)
	translated, stats := retrier.Translate(ctx, segments, target)
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, seg := range translated {
		text := seg.Text
		if overlay && text != segments[i].Text {
			text = text + "\n" + segments[i].Text
		}
		if err := subFile.SetText(i, text); err != nil {
			return fmt.Errorf("failed to set text for entry %d: %w", i, err)
		}
	}

	logger.Infow("Writing output file", "output", outputPath)
	if subtitle.GetFormatFromExtension(outputPath) != subFile.Format() {
		logger.Warnw("Output extension differs from input format, writing input format",
			"format", subFile.Format(),
			"ext", ext,
		)
	}
	if err := subFile.Write(outputPath); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subtitles translated: %s\n", absOutput)
	fmt.Fprintf(out, "  Entries: %d (%d translated, %d kept original, %d empty)\n",
		len(segments), stats.Translated, stats.Fallback, stats.Empty)
	fmt.Fprintf(out, "  Target language: %s\n", translate.LanguageName(target))
	if overlay {
		fmt.Fprintf(out, "  Mode: bilingual overlay\n")
	}

	return nil
}

func applyTranslateFlags(cmd *cobra.Command, cfg *config.Pipeline) error {
	flags := cmd.Flags()
	cfg.Translation.TargetLanguage, _ = flags.GetString("lang")
	if flags.Changed("provider") {
		cfg.Translation.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("api-key") {
		cfg.Translation.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("model") {
		cfg.Translation.Model, _ = flags.GetString("model")
	}
	return cfg.Normalize()
}

// translatedPath is <base>.<lang>[.overlay]<ext>.
func translatedPath(path, lang string, overlay bool) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if overlay {
		return fmt.Sprintf("%s.%s.overlay%s", base, lang, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, lang, ext)
}
