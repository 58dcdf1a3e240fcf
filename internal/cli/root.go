package cli

import (
	"context"
	"fmt"

	"github.com/mgpai22/autosub/internal/config"
	"github.com/mgpai22/autosub/internal/ffmpeg"
	"github.com/mgpai22/autosub/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autosub",
	Short: "Automatic subtitle generator for audio and video files",
	Long: `Autosub extracts the audio track of a media file, transcribes it
with whisper.cpp or a hosted speech model, optionally translates the
result and writes an SRT or VTT subtitle file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

// Execute runs the root command; ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default ~/.config/autosub/config.toml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}

func loadConfig() (*config.Pipeline, error) {
	cfg, path, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debugw("Configuration loaded", "path", path)
	return cfg, nil
}

func newMediaTool(ctx context.Context) (*ffmpeg.Tool, error) {
	paths, err := ffmpeg.Locate(ctx, ffmpeg.LookupOptions{
		AllowDownload: true,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to locate ffmpeg: %w", err)
	}
	logger.Debugw("Using ffmpeg", "ffmpeg", paths.FFmpeg, "ffprobe", paths.FFprobe)
	return ffmpeg.NewTool(paths, logger), nil
}
