package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mgpai22/autosub/internal/logging"
)

const defaultThreads = 6

var whisperBinaries = []string{"whisper-cli", "whisper-cpp"}

// stderr markers of a model or context that failed to initialize
var loadFailureMarkers = []string{
	"failed to initialize whisper context",
	"failed to load model",
	"invalid model data",
}

// implements Engine by running the whisper.cpp CLI once per chunk
type WhisperCppEngine struct {
	binary   string
	model    string
	language string
	prompt   string
	threads  int
	log      *logging.Logger
}

// whisper.cpp -oj output
type whisperCppOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func NewWhisperCppEngine(ctx context.Context, opts EngineOptions) (*WhisperCppEngine, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	binary, err := findWhisperBinary()
	if err != nil {
		return nil, err
	}

	log.Infow("Loading whisper model", "model", opts.Model)
	model, err := ResolveModel(ctx, opts.Model, nil, log)
	if err != nil {
		return nil, err
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = min(defaultThreads, runtime.NumCPU())
	}

	language := strings.TrimSpace(opts.Language)
	if language == "" {
		language = "auto"
	}

	return &WhisperCppEngine{
		binary:   binary,
		model:    model,
		language: language,
		prompt:   opts.Prompt,
		threads:  threads,
		log:      log,
	}, nil
}

func findWhisperBinary() (string, error) {
	if path := os.Getenv("AUTOSUB_WHISPER_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: AUTOSUB_WHISPER_PATH: %w", ErrEngineLoad, err)
		}
		return path, nil
	}
	for _, name := range whisperBinaries {
		if found, err := exec.LookPath(name); err == nil {
			return found, nil
		}
	}
	return "", fmt.Errorf(
		"%w: whisper.cpp CLI not found (install whisper-cli or set AUTOSUB_WHISPER_PATH)",
		ErrEngineLoad,
	)
}

// transcribes a single audio file
func (e *WhisperCppEngine) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	outDir, err := os.MkdirTemp("", "autosub-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(outDir) }()
	outBase := filepath.Join(outDir, "out")

	args := []string{
		"-m", e.model,
		"-f", audioPath,
		"-l", e.language,
		"-t", strconv.Itoa(e.threads),
		"-oj",
		"-of", outBase,
		"-np",
	}
	if e.prompt != "" {
		args = append(args, "--prompt", e.prompt)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stderr = &stderr

	e.log.Debugw("Running whisper.cpp", "binary", e.binary, "audio", audioPath)
	if err := cmd.Run(); err != nil {
		return nil, classifyWhisperError(stderr.String(), err)
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		if msg := stderr.String(); containsLoadFailure(msg) {
			return nil, classifyWhisperError(msg, err)
		}
		return nil, fmt.Errorf("failed to read whisper output: %w", err)
	}

	return parseWhisperCppJSON(data)
}

func parseWhisperCppJSON(data []byte) ([]RawSegment, error) {
	var out whisperCppOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	segments := make([]RawSegment, 0, len(out.Transcription))
	for _, t := range out.Transcription {
		segments = append(segments, RawSegment{
			T0:   t.Offsets.From / 10,
			T1:   t.Offsets.To / 10,
			Text: t.Text,
		})
	}
	return segments, nil
}

func classifyWhisperError(stderr string, err error) error {
	tail := strings.TrimSpace(stderr)
	if i := strings.LastIndex(tail, "\n"); i >= 0 {
		tail = strings.TrimSpace(tail[i+1:])
	}
	if containsLoadFailure(stderr) {
		return fmt.Errorf("%w: %s", ErrEngineLoad, tail)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && tail != "" {
		return fmt.Errorf("whisper.cpp failed: %w: %s", err, tail)
	}
	return fmt.Errorf("whisper.cpp failed: %w", err)
}

func containsLoadFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, marker := range loadFailureMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (e *WhisperCppEngine) Close() error {
	return nil
}
