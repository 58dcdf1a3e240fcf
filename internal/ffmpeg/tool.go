package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/autosub/internal/logging"
)

// settings for audio extraction
type ExtractOptions struct {
	Format     string // wav, mp3, aac or flac
	SampleRate int    // Hz
	Channels   int    // 1=mono, 2=stereo
	Bitrate    string // lossy formats only, e.g. "64k"
}

// 16 kHz mono PCM, the input recognition engines expect
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// Tool runs ffmpeg and ffprobe as external processes.
type Tool struct {
	paths BinaryPaths
	log   *logging.Logger
}

func NewTool(paths BinaryPaths, log *logging.Logger) *Tool {
	if log == nil {
		log = logging.Nop()
	}
	return &Tool{paths: paths, log: log}
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe returns the container duration of path in seconds.
func (t *Tool) Probe(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("file not found: %s", path)
	}

	cmd := exec.CommandContext(ctx, t.paths.FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeDuration(out.Bytes())
}

func parseProbeDuration(data []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return seconds, nil
}

// ExtractAudio writes a 16 kHz mono WAV of src's audio track to dst.
func (t *Tool) ExtractAudio(ctx context.Context, src, dst string) error {
	return t.ExtractAudioWithOptions(ctx, src, dst, DefaultExtractOptions())
}

func (t *Tool) ExtractAudioWithOptions(
	ctx context.Context,
	src, dst string,
	opts ExtractOptions,
) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("input file not found: %s", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := t.run(ctx, extractStream(src, dst, opts)); err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w", err)
	}
	return nil
}

func extractStream(src, dst string, opts ExtractOptions) *ffmpeg.Stream {
	kwargs := ffmpeg.KwArgs{
		"vn": "",              // no video
		"ar": opts.SampleRate, // sample rate
		"ac": opts.Channels,   // channels
	}

	switch opts.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
		if opts.Bitrate != "" {
			kwargs["b:a"] = opts.Bitrate
		}
	case "aac":
		kwargs["acodec"] = "aac"
		if opts.Bitrate != "" {
			kwargs["b:a"] = opts.Bitrate
		}
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}

	return ffmpeg.Input(src).
		Output(dst, kwargs).
		OverWriteOutput()
}

// Split cuts src into consecutive pieces of chunkSeconds using the segment
// muxer. pattern is a printf-style path with one integer verb, e.g.
// "/tmp/run/audio_%03d.wav"; pieces are numbered from 0 in timeline order.
func (t *Tool) Split(
	ctx context.Context,
	src string,
	chunkSeconds float64,
	pattern string,
) error {
	if chunkSeconds <= 0 {
		return fmt.Errorf("chunk duration must be positive, got %v", chunkSeconds)
	}
	if err := os.MkdirAll(filepath.Dir(pattern), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := t.run(ctx, splitStream(src, chunkSeconds, pattern)); err != nil {
		return fmt.Errorf("ffmpeg split failed: %w", err)
	}
	return nil
}

func splitStream(src string, chunkSeconds float64, pattern string) *ffmpeg.Stream {
	return ffmpeg.Input(src).
		Output(pattern, ffmpeg.KwArgs{
			"f":                "segment",
			"segment_time":     strconv.FormatFloat(chunkSeconds, 'f', -1, 64),
			"reset_timestamps": "1",
			"c":                "copy",
		}).
		OverWriteOutput()
}

// run executes the compiled stream under ctx so cancellation kills ffmpeg.
func (t *Tool) run(ctx context.Context, stream *ffmpeg.Stream) error {
	args := stream.GetArgs()
	t.log.Debugw("Running ffmpeg", "args", strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.paths.FFmpeg, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if tail := lastLines(stderr.String(), 5); tail != "" {
			return fmt.Errorf("%w: %s", err, tail)
		}
		return err
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
