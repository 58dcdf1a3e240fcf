package ffmpeg

import (
	"archive/zip"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
)

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{
			name:  "valid",
			input: `{"format":{"filename":"a.wav","duration":"650.000000"}}`,
			want:  650,
		},
		{
			name:    "missing duration",
			input:   `{"format":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `garbage`,
			wantErr: true,
		},
		{
			name:    "non numeric",
			input:   `{"format":{"duration":"N/A"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeDuration([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitStreamArgs(t *testing.T) {
	args := splitStream("in.wav", 300, "out/in_%03d.wav").GetArgs()

	for _, want := range []string{"segment", "300", "copy", "out/in_%03d.wav", "-y"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
}

func TestExtractStreamArgs(t *testing.T) {
	args := extractStream("movie.mkv", "audio.wav", DefaultExtractOptions()).GetArgs()

	for _, want := range []string{"-vn", "16000", "pcm_s16le", "audio.wav"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
}

func TestAssetForPlatform(t *testing.T) {
	if _, err := assetForPlatform("linux", "amd64"); err != nil {
		t.Errorf("linux/amd64: %v", err)
	}
	if _, err := assetForPlatform("plan9", "386"); err == nil {
		t.Error("expected error for plan9/386")
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractArchive(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
		wantErr bool
	}{
		{
			name:    "both binaries",
			entries: map[string]string{"bin/ffmpeg": "ffmpeg-bytes", "bin/ffprobe": "ffprobe-bytes", "README": "x"},
		},
		{
			name:    "windows names",
			entries: map[string]string{"FFmpeg.exe": "ffmpeg-bytes", "ffprobe.exe": "ffprobe-bytes"},
		},
		{
			name:    "missing ffprobe",
			entries: map[string]string{"ffmpeg": "ffmpeg-bytes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "bundle.zip")
			writeZip(t, archive, tt.entries)

			dest := BinaryPaths{
				FFmpeg:  filepath.Join(dir, "ffmpeg"),
				FFprobe: filepath.Join(dir, "ffprobe"),
			}
			err := extractArchive(archive, dest)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extractArchive: %v", err)
			}

			// contents are fully flushed once extraction returns
			for path, want := range map[string]string{dest.FFmpeg: "ffmpeg-bytes", dest.FFprobe: "ffprobe-bytes"} {
				got, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("read %s: %v", path, err)
				}
				if string(got) != want {
					t.Errorf("%s: got %q, want %q", filepath.Base(path), got, want)
				}
			}
		})
	}
}

func TestExtractArchiveUnwritableDest(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")
	writeZip(t, archive, map[string]string{"ffmpeg": "a", "ffprobe": "b"})

	dest := BinaryPaths{
		FFmpeg:  filepath.Join(dir, "missing", "ffmpeg"),
		FFprobe: filepath.Join(dir, "missing", "ffprobe"),
	}
	if err := extractArchive(archive, dest); err == nil {
		t.Fatal("expected error for missing destination directory")
	}
}

// Exercises the real binaries; skipped when ffmpeg is not installed.
func TestToolExtractAndSplit(t *testing.T) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "tone.wav")
	gen := exec.Command(ffmpegPath,
		"-v", "quiet", "-f", "lavfi", "-i", "sine=frequency=440:duration=5", src)
	if err := gen.Run(); err != nil {
		t.Skipf("cannot generate test tone: %v", err)
	}

	tool := NewTool(BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil)
	ctx := context.Background()

	mono := filepath.Join(dir, "mono.wav")
	if err := tool.ExtractAudio(ctx, src, mono); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}

	duration, err := tool.Probe(ctx, mono)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if duration < 4.9 || duration > 5.1 {
		t.Errorf("duration %v, want ~5", duration)
	}

	pattern := filepath.Join(dir, "chunks", "mono_%03d.wav")
	if err := tool.Split(ctx, mono, 2, pattern); err != nil {
		t.Fatalf("Split: %v", err)
	}
	for _, name := range []string{"mono_000.wav", "mono_001.wav", "mono_002.wav"} {
		if _, err := os.Stat(filepath.Join(dir, "chunks", name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}
