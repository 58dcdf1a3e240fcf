package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/mgpai22/autosub/internal/cache"
	"github.com/mgpai22/autosub/internal/transcribe"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear downloaded models and tools",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cache.Root()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), root)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove downloaded whisper models (or everything with --all)",
	Long: `Remove cached whisper.cpp models. Models are downloaded again on the
next run that needs them. With --all the downloaded ffmpeg bundle is
removed as well.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheDirCmd, cacheClearCmd)

	cacheClearCmd.Flags().Bool("all", false, "Clear the entire cache, not only models")
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	var parts []string
	if !all {
		parts = []string{transcribe.ModelCacheDir}
	}

	freed, err := cache.Clear(parts...)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	logger.Infow("Cache cleared", "all", all, "freed", humanize.Bytes(uint64(freed)))
	fmt.Fprintf(cmd.OutOrStdout(), "Freed %s\n", humanize.Bytes(uint64(freed)))
	return nil
}
