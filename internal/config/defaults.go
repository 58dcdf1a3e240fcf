package config

import (
	"github.com/mgpai22/autosub/internal/subtitle"
	"github.com/mgpai22/autosub/internal/transcribe"
	"github.com/mgpai22/autosub/internal/translate"
)

const (
	defaultModel         = "base"
	defaultChunkDuration = 0
	defaultWorkers       = 1
)

// Default returns a Pipeline populated with repository defaults.
func Default() Pipeline {
	return Pipeline{
		Transcription: Transcription{
			Engine:        string(transcribe.EngineWhisperCpp),
			Model:         defaultModel,
			ChunkDuration: defaultChunkDuration,
			Workers:       defaultWorkers,
		},
		Translation: Translation{
			Provider: string(translate.ProviderGoogle),
		},
		Output: Output{
			Format: string(subtitle.FormatSRT),
		},
	}
}
