package config

import (
	"fmt"
	"math"

	"github.com/mgpai22/autosub/internal/subtitle"
	"github.com/mgpai22/autosub/internal/transcribe"
	"github.com/mgpai22/autosub/internal/translate"
)

// Validate ensures the configuration is usable. Errors wrap ErrInvalidConfig
// and, where one applies, the more specific sentinel of the owning package.
func (c *Pipeline) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

func (c *Pipeline) validateTranscription() error {
	kind, err := transcribe.ParseEngineKind(c.Transcription.Engine)
	if err != nil {
		return fmt.Errorf("%w: transcription.engine: %w", ErrInvalidConfig, err)
	}
	if kind.RequiresCredential() && c.Transcription.APIKey == "" {
		return fmt.Errorf(
			"%w: transcription.api_key is required for engine %s (or set %s)",
			ErrInvalidConfig,
			kind,
			kind.CredentialEnv(),
		)
	}
	d := c.Transcription.ChunkDuration
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return fmt.Errorf(
			"%w: transcription.chunk_duration must be >= 0, got %v",
			ErrInvalidConfig,
			d,
		)
	}
	if err := transcribe.CheckWorkers(c.Transcription.Workers); err != nil {
		return fmt.Errorf("%w: transcription.workers: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Pipeline) validateTranslation() error {
	if !c.Translates() {
		return nil
	}
	if _, err := translate.ParseLanguage(c.Translation.TargetLanguage); err != nil {
		return fmt.Errorf("%w: translation.target_language: %w", ErrInvalidConfig, err)
	}
	provider, err := translate.ParseProvider(c.Translation.Provider)
	if err != nil {
		return fmt.Errorf("%w: translation.provider: %w", ErrInvalidConfig, err)
	}
	if err := provider.CheckCredential(c.Translation.APIKey); err != nil {
		return fmt.Errorf("%w: translation.api_key: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Pipeline) validateOutput() error {
	if _, err := subtitle.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: output.format: %w", ErrInvalidConfig, err)
	}
	return nil
}
