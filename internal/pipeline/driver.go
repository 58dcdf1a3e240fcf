package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/mgpai22/autosub/internal/audio"
	"github.com/mgpai22/autosub/internal/config"
	"github.com/mgpai22/autosub/internal/logging"
	"github.com/mgpai22/autosub/internal/subtitle"
	"github.com/mgpai22/autosub/internal/transcribe"
	"github.com/mgpai22/autosub/internal/translate"
)

// ErrSourceNotFound is returned when the input media file does not exist.
var ErrSourceNotFound = errors.New("source not found")

// CheckSource fails with ErrSourceNotFound unless source is an existing
// regular path.
func CheckSource(source string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, source)
	}
	return nil
}

type EngineLoader func(ctx context.Context, opts transcribe.EngineOptions) (*transcribe.Handle, error)

type BackendFactory func(
	ctx context.Context,
	provider translate.Provider,
	apiKey string,
	opts translate.Options,
) (translate.Backend, error)

// Driver runs the extract, segment, transcribe, translate and write stages
// for one source file.
type Driver struct {
	Tool       audio.Tool
	LoadEngine EngineLoader
	NewBackend BackendFactory
	Retry      translate.RetryOptions
	// TempRoot holds per-run working directories; empty means os.TempDir,
	// and config output.temp_dir takes precedence.
	TempRoot string
	Logger   *logging.Logger
}

func NewDriver(tool audio.Tool, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.Nop()
	}
	return &Driver{
		Tool:       tool,
		LoadEngine: transcribe.Load,
		NewBackend: translate.NewBackend,
		Retry:      translate.DefaultRetryOptions(),
		Logger:     log,
	}
}

// Result describes a completed, possibly degraded, run.
type Result struct {
	RunID            string
	OutputPath       string
	Format           subtitle.Format
	Segments         []subtitle.Segment
	Chunks           int
	Report           transcribe.Report
	Translated       bool
	TargetLanguage   string
	TranslationStats translate.Stats
	OutputBytes      int64
	Elapsed          time.Duration
}

// Run processes source according to cfg. Config, source, extraction, engine
// load and write failures are fatal. Segmentation, chunk and translation
// failures degrade the result but still produce a subtitle file.
func (d *Driver) Run(ctx context.Context, source string, cfg config.Pipeline) (*Result, error) {
	started := time.Now()
	log := d.logger()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := subtitle.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	if err := CheckSource(source); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log = log.With("run", runID[:8])

	runDir, err := d.makeRunDir(runID, cfg.Output.TempDir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cfg.Output.KeepTemp {
			log.Infow("Keeping temporary files", "dir", runDir)
			return
		}
		if err := os.RemoveAll(runDir); err != nil {
			log.Warnw("Failed to remove temporary directory", "dir", runDir, "error", err)
		}
	}()

	log.Infow("Extracting audio", "source", source)
	wavPath := filepath.Join(runDir, "audio.wav")
	if err := d.Tool.ExtractAudio(ctx, source, wavPath); err != nil {
		return nil, fmt.Errorf("failed to extract audio: %w", err)
	}

	chunks := d.segment(ctx, log, wavPath, cfg.Transcription.ChunkDuration)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	segments, report, err := d.transcribe(ctx, log, chunks, cfg)
	if !cfg.Output.KeepTemp {
		if cerr := audio.CleanupChunks(chunks, wavPath); cerr != nil {
			log.Warnw("Failed to remove chunk files", "error", cerr)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		log.Warnw("No speech recognized, subtitle file will be empty")
	}

	result := &Result{
		RunID:    runID,
		Format:   format,
		Segments: segments,
		Chunks:   len(chunks),
		Report:   report,
	}

	if cfg.Translates() {
		d.translate(ctx, log, cfg, result)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	result.OutputPath = cfg.Output.Path
	if result.OutputPath == "" {
		result.OutputPath = DefaultOutputPath(source, result.TargetLanguage, format)
	}

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := writer.Write(result.Segments, result.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to write subtitles: %w", err)
	}
	if st, err := os.Stat(result.OutputPath); err == nil {
		result.OutputBytes = st.Size()
	}
	result.Elapsed = time.Since(started)

	log.Infow("Subtitles written",
		"path", result.OutputPath,
		"segments", len(result.Segments),
		"size", humanize.Bytes(uint64(result.OutputBytes)),
	)
	return result, nil
}

func (d *Driver) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.Nop()
	}
	return d.Logger
}

func (d *Driver) makeRunDir(runID, configured string) (string, error) {
	root := configured
	if root == "" {
		root = d.TempRoot
	}
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "autosub-"+runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return dir, nil
}

// segment falls back to the whole file when splitting fails.
func (d *Driver) segment(ctx context.Context, log *logging.Logger, wavPath string, chunkSeconds float64) []audio.Chunk {
	chunks, err := audio.NewSegmenter(d.Tool, log).Segment(ctx, wavPath, chunkSeconds)
	if err != nil {
		log.Warnw("Segmentation failed, transcribing whole file", "error", err)
		return audio.WholeFile(wavPath)
	}
	if len(chunks) > 1 {
		log.Infow("Audio split into chunks", "chunks", len(chunks), "chunk_seconds", chunkSeconds)
	}
	return chunks
}

func (d *Driver) transcribe(
	ctx context.Context,
	log *logging.Logger,
	chunks []audio.Chunk,
	cfg config.Pipeline,
) ([]subtitle.Segment, transcribe.Report, error) {
	orch, err := transcribe.NewOrchestrator(cfg.Transcription.Workers, log)
	if err != nil {
		return nil, transcribe.Report{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	log.Infow("Loading transcription engine",
		"engine", cfg.Transcription.Engine,
		"model", cfg.Transcription.Model,
	)
	handle, err := d.LoadEngine(ctx, transcribe.EngineOptions{
		Kind:   transcribe.EngineKind(cfg.Transcription.Engine),
		Model:  cfg.Transcription.Model,
		APIKey: cfg.Transcription.APIKey,
		Logger: log,
	})
	if err != nil {
		return nil, transcribe.Report{}, err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			log.Warnw("Failed to close transcription engine", "error", err)
		}
	}()

	segments, report, err := orch.Transcribe(ctx, chunks, handle)
	if err != nil {
		return nil, report, err
	}

	log.Infow("Transcription complete",
		"segments", len(segments),
		"chunks_ok", report.Succeeded(),
		"chunks_failed", report.Failed(),
		"dropped", report.Dropped(),
	)
	return segments, report, nil
}

// translate replaces result.Segments with translated copies. Any failure
// here leaves the untranslated segments in place.
func (d *Driver) translate(ctx context.Context, log *logging.Logger, cfg config.Pipeline, result *Result) {
	target, err := translate.ParseLanguage(cfg.Translation.TargetLanguage)
	if err != nil {
		log.Warnw("Skipping translation", "error", err)
		return
	}
	result.TargetLanguage = target.String()

	provider := translate.Provider(cfg.Translation.Provider)
	backend, err := d.NewBackend(ctx, provider, cfg.Translation.APIKey, translate.Options{
		Model: cfg.Translation.Model,
	})
	if err != nil {
		log.Warnw("Translation backend unavailable, keeping original text",
			"provider", provider,
			"error", err,
		)
		return
	}

	segments, stats := translate.NewRetrier(backend, d.Retry, log).Translate(ctx, result.Segments, target)
	result.Segments = segments
	result.TranslationStats = stats
	result.Translated = true

	log.Infow("Translation complete",
		"target", target.String(),
		"translated", stats.Translated,
		"fallback", stats.Fallback,
	)
}

// DefaultOutputPath is <source without ext>[.<lang>].<format>.
func DefaultOutputPath(source, lang string, format subtitle.Format) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	if lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			lang = tag.String()
		}
		base += "." + lang
	}
	return base + subtitle.GetExtensionForFormat(format)
}
