package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig marks configuration problems detected before any work starts.
var ErrInvalidConfig = errors.New("invalid configuration")

// Transcription selects the speech-recognition engine and chunking.
type Transcription struct {
	Engine string `toml:"engine"`
	// Model is a size selector (tiny..large) for whisper.cpp, a path to a
	// ggml .bin file, or a model id for the API engines.
	Model  string `toml:"model"`
	APIKey string `toml:"api_key"`
	// ChunkDuration is in seconds; 0 disables splitting.
	ChunkDuration float64 `toml:"chunk_duration"`
	Workers       int     `toml:"workers"`
}

// Translation selects the target language and backend. An empty
// TargetLanguage means no translation.
type Translation struct {
	TargetLanguage string `toml:"target_language"`
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
}

// Output controls where and how the subtitle file is written.
type Output struct {
	Path     string `toml:"path"`
	Format   string `toml:"format"`
	KeepTemp bool   `toml:"keep_temp"`
	TempDir  string `toml:"temp_dir"`
}

// Pipeline is the full configuration of one run.
type Pipeline struct {
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Output        Output        `toml:"output"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/autosub/config.toml")
}

// Load reads the configuration file at path, or the default location when
// path is empty. A missing default file yields defaults; a missing explicit
// file is an error. The result is not validated so callers can overlay flags.
func Load(path string) (*Pipeline, string, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}
	if path != "" && !exists {
		return nil, "", fmt.Errorf("config file not found: %s", resolvedPath)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", fmt.Errorf("open config: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		path = defaultPath
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path is a directory: %s", expanded)
	}
	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
