package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/autosub/internal/logging"
)

// ErrNoChunks is wrapped when splitting produced no usable chunk files.
var ErrNoChunks = errors.New("no chunks produced")

// audio chunk info; Offset is Index × chunk duration in seconds
type Chunk struct {
	Index  int
	Path   string
	Offset float64
}

// Tool is the external media tool the pipeline drives.
type Tool interface {
	Probe(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, src, dst string) error
	Split(ctx context.Context, src string, chunkSeconds float64, pattern string) error
}

// SegmentationError reports a failed split. Callers fall back to the
// whole file as a single chunk.
type SegmentationError struct {
	Op   string
	Path string
	Err  error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segmentation %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SegmentationError) Unwrap() error {
	return e.Err
}

type Segmenter struct {
	tool Tool
	log  *logging.Logger
}

func NewSegmenter(tool Tool, log *logging.Logger) *Segmenter {
	if log == nil {
		log = logging.Nop()
	}
	return &Segmenter{tool: tool, log: log}
}

// WholeFile is the single chunk covering the entire file.
func WholeFile(path string) []Chunk {
	return []Chunk{{Index: 0, Path: path, Offset: 0}}
}

// Segment splits audioPath into consecutive chunks of chunkSeconds next to
// the source. A chunkSeconds of 0 returns the whole file without touching
// the media tool. Expected chunk files that the tool did not produce are
// omitted; extra files beyond the expected count are ignored.
func (s *Segmenter) Segment(
	ctx context.Context,
	audioPath string,
	chunkSeconds float64,
) ([]Chunk, error) {
	if chunkSeconds == 0 {
		return WholeFile(audioPath), nil
	}
	if chunkSeconds < 0 || math.IsNaN(chunkSeconds) || math.IsInf(chunkSeconds, 0) {
		return nil, &SegmentationError{
			Op:   "configure",
			Path: audioPath,
			Err:  fmt.Errorf("chunk duration must be >= 0, got %v", chunkSeconds),
		}
	}

	if _, err := os.Stat(audioPath); err != nil {
		return nil, &SegmentationError{Op: "stat", Path: audioPath, Err: err}
	}

	duration, err := s.tool.Probe(ctx, audioPath)
	if err != nil {
		return nil, &SegmentationError{Op: "probe", Path: audioPath, Err: err}
	}

	expected := ExpectedChunks(duration, chunkSeconds)
	if expected == 0 {
		return nil, &SegmentationError{
			Op:   "probe",
			Path: audioPath,
			Err:  fmt.Errorf("%w: duration %v", ErrNoChunks, duration),
		}
	}

	pattern := chunkPattern(audioPath)
	s.log.Debugw("Splitting audio",
		"duration", duration,
		"chunk_seconds", chunkSeconds,
		"expected", expected,
	)

	if err := s.tool.Split(ctx, audioPath, chunkSeconds, pattern); err != nil {
		return nil, &SegmentationError{Op: "split", Path: audioPath, Err: err}
	}

	chunks := make([]Chunk, 0, expected)
	for i := 0; i < expected; i++ {
		path := fmt.Sprintf(pattern, i)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		chunks = append(chunks, Chunk{
			Index:  i,
			Path:   path,
			Offset: float64(i) * chunkSeconds,
		})
	}

	if len(chunks) < expected {
		s.log.Warnw("Split produced fewer chunks than expected",
			"expected", expected,
			"found", len(chunks),
		)
	}
	if len(chunks) == 0 {
		return nil, &SegmentationError{Op: "split", Path: audioPath, Err: ErrNoChunks}
	}

	return chunks, nil
}

// ExpectedChunks is ceil(duration / chunkSeconds).
func ExpectedChunks(duration, chunkSeconds float64) int {
	if duration <= 0 || chunkSeconds <= 0 {
		return 0
	}
	return int(math.Ceil(duration / chunkSeconds))
}

// <dir>/<base>_%03d<ext>
func chunkPattern(audioPath string) string {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(filepath.Base(audioPath), ext)
	// the pattern is fed to fmt and ffmpeg, so literal percents are doubled
	base = strings.ReplaceAll(base, "%", "%%")
	dir := strings.ReplaceAll(filepath.Dir(audioPath), "%", "%%")
	return filepath.Join(dir, base+"_%03d"+ext)
}

// removes all chunk files, keeping any path listed in keep
func CleanupChunks(chunks []Chunk, keep ...string) error {
	var lastErr error
	for _, chunk := range chunks {
		if contains(keep, chunk.Path) {
			continue
		}
		if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".3gp":  true,
	}
	return videoExts[ext]
}

// checks if the file is an audio file based on extension
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	audioExts := map[string]bool{
		".mp3":  true,
		".wav":  true,
		".aac":  true,
		".flac": true,
		".ogg":  true,
		".m4a":  true,
		".wma":  true,
		".aiff": true,
	}
	return audioExts[ext]
}

// checks if the file is either audio or video
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
