package transcribe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgpai22/autosub/internal/cache"
	"github.com/mgpai22/autosub/internal/logging"
)

// ModelCacheDir is the cache subdirectory holding ggml models.
const ModelCacheDir = "models"

var modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// size selector -> ggml model name
var modelNames = map[string]string{
	"tiny":           "tiny",
	"tiny.en":        "tiny.en",
	"base":           "base",
	"base.en":        "base.en",
	"small":          "small",
	"small.en":       "small.en",
	"medium":         "medium",
	"medium.en":      "medium.en",
	"large":          "large-v3",
	"large-v1":       "large-v1",
	"large-v2":       "large-v2",
	"large-v3":       "large-v3",
	"large-v3-turbo": "large-v3-turbo",
	"turbo":          "large-v3-turbo",
}

// ModelSizes lists the accepted size selectors.
func ModelSizes() []string {
	sizes := make([]string, 0, len(modelNames))
	for k := range modelNames {
		sizes = append(sizes, k)
	}
	sort.Strings(sizes)
	return sizes
}

func modelURL(name string) string {
	return fmt.Sprintf("%s/ggml-%s.bin", modelBaseURL, name)
}

// ResolveModel returns a local ggml model path for selector, which is
// either a size name or a path to a .bin file. Size models missing from
// the cache are downloaded. Failures wrap ErrEngineLoad.
func ResolveModel(
	ctx context.Context,
	selector string,
	client *http.Client,
	log *logging.Logger,
) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = "base"
	}

	if strings.HasSuffix(selector, ".bin") || strings.ContainsRune(selector, os.PathSeparator) {
		info, err := os.Stat(selector)
		if err != nil {
			return "", fmt.Errorf("%w: model file: %w", ErrEngineLoad, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: model path is a directory: %s", ErrEngineLoad, selector)
		}
		return selector, nil
	}

	name, ok := modelNames[strings.ToLower(selector)]
	if !ok {
		return "", fmt.Errorf(
			"%w: unknown model %q (available: %s)",
			ErrEngineLoad,
			selector,
			strings.Join(ModelSizes(), ", "),
		)
	}

	dir, err := cache.Dir(ModelCacheDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}
	dest := filepath.Join(dir, "ggml-"+name+".bin")
	if err := cache.Fetch(ctx, client, modelURL(name), dest, log); err != nil {
		return "", fmt.Errorf("%w: download model %s: %w", ErrEngineLoad, name, err)
	}
	return dest, nil
}
