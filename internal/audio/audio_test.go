package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/autosub/internal/logging"
)

type fakeTool struct {
	duration   float64
	probeErr   error
	splitErr   error
	skip       map[int]bool
	extra      int
	probeCalls int
	splitCalls int
	pattern    string
}

func (f *fakeTool) Probe(ctx context.Context, path string) (float64, error) {
	f.probeCalls++
	return f.duration, f.probeErr
}

func (f *fakeTool) ExtractAudio(ctx context.Context, src, dst string) error {
	return os.WriteFile(dst, []byte("wav"), 0644)
}

func (f *fakeTool) Split(ctx context.Context, src string, chunkSeconds float64, pattern string) error {
	f.splitCalls++
	f.pattern = pattern
	if f.splitErr != nil {
		return f.splitErr
	}
	n := ExpectedChunks(f.duration, chunkSeconds) + f.extra
	for i := 0; i < n; i++ {
		if f.skip[i] {
			continue
		}
		if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("chunk"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, []byte("wav"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}
	return path
}

func TestSegmentDisabledReturnsWholeFile(t *testing.T) {
	tool := &fakeTool{}
	seg := NewSegmenter(tool, nil)

	chunks, err := seg.Segment(context.Background(), "/nowhere/audio.wav", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Index != 0 || chunks[0].Offset != 0 ||
		chunks[0].Path != "/nowhere/audio.wav" {
		t.Errorf("got %+v", chunks)
	}
	if tool.probeCalls != 0 || tool.splitCalls != 0 {
		t.Errorf("media tool was called: probe=%d split=%d", tool.probeCalls, tool.splitCalls)
	}
}

func TestSegmentOffsets(t *testing.T) {
	src := writeSource(t)
	tool := &fakeTool{duration: 650, extra: 1}
	seg := NewSegmenter(tool, nil)

	chunks, err := seg.Segment(context.Background(), src, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	wantOffsets := []float64{0, 300, 600}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: index %d", i, c.Index)
		}
		if c.Offset != wantOffsets[i] {
			t.Errorf("chunk %d: offset %v, want %v", i, c.Offset, wantOffsets[i])
		}
		want := filepath.Join(filepath.Dir(src), fmt.Sprintf("audio_%03d.wav", i))
		if c.Path != want {
			t.Errorf("chunk %d: path %q, want %q", i, c.Path, want)
		}
	}
}

func TestSegmentOmitsMissingChunk(t *testing.T) {
	src := writeSource(t)
	tool := &fakeTool{duration: 650, skip: map[int]bool{1: true}}

	core, logs := observer.New(zapcore.WarnLevel)
	seg := NewSegmenter(tool, logging.FromCore(core))

	chunks, err := seg.Segment(context.Background(), src, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[1].Index != 2 || chunks[1].Offset != 600 {
		t.Errorf("got %+v", chunks)
	}

	warnings := logs.FilterMessage("Split produced fewer chunks than expected").All()
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
	fields := warnings[0].ContextMap()
	if fields["expected"] != int64(3) || fields["found"] != int64(2) {
		t.Errorf("warning fields: %v", fields)
	}
}

func TestSegmentErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		tool   *fakeTool
		source func(t *testing.T) string
		op     string
	}{
		{
			name:   "missing source",
			tool:   &fakeTool{duration: 10},
			source: func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.wav") },
			op:     "stat",
		},
		{
			name:   "probe failure",
			tool:   &fakeTool{probeErr: boom},
			source: writeSource,
			op:     "probe",
		},
		{
			name:   "zero duration",
			tool:   &fakeTool{duration: 0},
			source: writeSource,
			op:     "probe",
		},
		{
			name:   "split failure",
			tool:   &fakeTool{duration: 650, splitErr: boom},
			source: writeSource,
			op:     "split",
		},
		{
			name:   "nothing produced",
			tool:   &fakeTool{duration: 650, skip: map[int]bool{0: true, 1: true, 2: true}},
			source: writeSource,
			op:     "split",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := NewSegmenter(tt.tool, nil)
			_, err := seg.Segment(context.Background(), tt.source(t), 300)

			var segErr *SegmentationError
			if !errors.As(err, &segErr) {
				t.Fatalf("got %v, want *SegmentationError", err)
			}
			if segErr.Op != tt.op {
				t.Errorf("op %q, want %q", segErr.Op, tt.op)
			}
		})
	}
}

func TestExpectedChunks(t *testing.T) {
	tests := []struct {
		duration, chunk float64
		want            int
	}{
		{650, 300, 3},
		{600, 300, 2},
		{1, 300, 1},
		{0, 300, 0},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := ExpectedChunks(tt.duration, tt.chunk); got != tt.want {
			t.Errorf("ExpectedChunks(%v, %v) = %d, want %d", tt.duration, tt.chunk, got, tt.want)
		}
	}
}

func TestCleanupChunksKeepsListedPaths(t *testing.T) {
	dir := t.TempDir()
	var chunks []Chunk
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, fmt.Sprintf("c%d.wav", i))
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatalf("seed: %v", err)
		}
		chunks = append(chunks, Chunk{Index: i, Path: p})
	}

	if err := CleanupChunks(chunks, chunks[1].Path); err != nil {
		t.Fatalf("CleanupChunks: %v", err)
	}
	for i, c := range chunks {
		_, err := os.Stat(c.Path)
		if i == 1 && err != nil {
			t.Errorf("kept chunk removed: %v", err)
		}
		if i != 1 && !os.IsNotExist(err) {
			t.Errorf("chunk %d not removed", i)
		}
	}
}

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"movie.MKV", true},
		{"talk.mp3", true},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := IsMediaFile(tt.path); got != tt.want {
			t.Errorf("IsMediaFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
