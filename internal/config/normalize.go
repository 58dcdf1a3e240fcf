package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mgpai22/autosub/internal/transcribe"
	"github.com/mgpai22/autosub/internal/translate"
)

// Normalize lowercases identifiers and expands ~ in paths. Load calls it;
// callers overlaying flag values call it again.
func (c *Pipeline) Normalize() error {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	c.Translation.Provider = strings.ToLower(strings.TrimSpace(c.Translation.Provider))
	c.Translation.TargetLanguage = strings.TrimSpace(c.Translation.TargetLanguage)
	c.Output.Format = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Output.Format), "."))

	var err error
	if c.Output.Path, err = expandPath(c.Output.Path); err != nil {
		return fmt.Errorf("output.path: %w", err)
	}
	if c.Output.TempDir, err = expandPath(c.Output.TempDir); err != nil {
		return fmt.Errorf("output.temp_dir: %w", err)
	}
	return nil
}

// ResolveCredentials fills empty API keys from the environment variable
// conventional for the selected engine and provider.
func (c *Pipeline) ResolveCredentials() {
	if c.Transcription.APIKey == "" {
		if env := transcribe.EngineKind(c.Transcription.Engine).CredentialEnv(); env != "" {
			c.Transcription.APIKey = strings.TrimSpace(os.Getenv(env))
		}
	}
	if c.Translation.APIKey == "" {
		if env := translate.Provider(c.Translation.Provider).CredentialEnv(); env != "" {
			c.Translation.APIKey = strings.TrimSpace(os.Getenv(env))
		}
	}
}

// Translates reports whether a target language is configured.
func (c *Pipeline) Translates() bool {
	return c.Translation.TargetLanguage != ""
}
