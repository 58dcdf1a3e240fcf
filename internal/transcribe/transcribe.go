package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mgpai22/autosub/internal/logging"
)

var (
	// ErrEngineLoad marks a recognition engine that could not be brought up.
	ErrEngineLoad = errors.New("engine failed to load")
	// ErrEngineBusy is returned when a handle is used by two callers at once.
	ErrEngineBusy = errors.New("engine is busy")
	// ErrEngineClosed is returned after the handle has been released.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrConcurrencyUnsupported is returned for any worker count other than 1.
	ErrConcurrencyUnsupported = errors.New("concurrent transcription is not supported")
	ErrUnsupportedEngine      = errors.New("unsupported engine")
)

// engine-native segment; T0 and T1 are centiseconds from the chunk start
type RawSegment struct {
	T0   int64
	T1   int64
	Text string
}

// interface for speech recognition of one audio file
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error)
	Close() error
}

// recognition engine identifier
type EngineKind string

const (
	EngineWhisperCpp EngineKind = "whispercpp"
	EngineOpenAI     EngineKind = "openai"
	EngineGemini     EngineKind = "gemini"
)

func ParseEngineKind(name string) (EngineKind, error) {
	switch kind := EngineKind(strings.ToLower(strings.TrimSpace(name))); kind {
	case EngineWhisperCpp, EngineOpenAI, EngineGemini:
		return kind, nil
	case "whisper", "whisper.cpp", "":
		return EngineWhisperCpp, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEngine, name)
	}
}

func (k EngineKind) RequiresCredential() bool {
	return k == EngineOpenAI || k == EngineGemini
}

// CredentialEnv names the environment variable holding the engine's API key.
func (k EngineKind) CredentialEnv() string {
	switch k {
	case EngineOpenAI:
		return "OPENAI_API_KEY"
	case EngineGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// engine options
type EngineOptions struct {
	Kind     EngineKind
	Model    string // size selector or model path for whisper.cpp, model id otherwise
	APIKey   string
	Language string // source language hint, empty for auto-detect
	Prompt   string
	Threads  int
	BaseURL  string // API endpoint override
	Logger   *logging.Logger
}

// Load brings up the selected engine and wraps it in a Handle. Every
// failure wraps ErrEngineLoad.
func Load(ctx context.Context, opts EngineOptions) (*Handle, error) {
	kind, err := ParseEngineKind(string(opts.Kind))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	var engine Engine
	switch kind {
	case EngineWhisperCpp:
		engine, err = NewWhisperCppEngine(ctx, opts)
	case EngineOpenAI:
		engine, err = NewOpenAIEngine(ctx, opts)
	case EngineGemini:
		engine, err = NewGeminiEngine(ctx, opts)
	}
	if err != nil {
		if errors.Is(err, ErrEngineLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEngineLoad, err)
	}

	return NewHandle(kind, engine), nil
}

// CheckWorkers accepts only the sequential worker count.
func CheckWorkers(workers int) error {
	if workers != 1 {
		return fmt.Errorf("%w: workers must be 1, got %d", ErrConcurrencyUnsupported, workers)
	}
	return nil
}

func secondsToCentis(s float64) int64 {
	return int64(math.Round(s * 100))
}
