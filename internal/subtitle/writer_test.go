package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSRTWriterOutput(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 1.5, Text: "Hello"},
		{Start: 1.5, End: 2, Text: "   "},
		{Start: 2, End: 3599.999, Text: " World "},
	}

	path := filepath.Join(t.TempDir(), "nested", "out.srt")
	if err := (&SRTWriter{}).Write(segs, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n" +
		"2\n00:00:01,500 --> 00:00:02,000\n\n\n" +
		"3\n00:00:02,000 --> 00:59:59,999\nWorld\n\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestVTTWriterOutput(t *testing.T) {
	segs := []Segment{{Start: 61.25, End: 62, Text: "Hi"}}

	path := filepath.Join(t.TempDir(), "out.vtt")
	if err := (&VTTWriter{}).Write(segs, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	want := "WEBVTT\n\n1\n00:01:01.250 --> 00:01:02.000\nHi\n\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBlankTextRoundTrip(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 1, Text: "a"},
		{Start: 1, End: 2, Text: ""},
		{Start: 2, End: 3, Text: "   "},
		{Start: 3, End: 4, Text: "b"},
	}
	wantTexts := []string{"a", "", "", "b"}

	tests := []struct {
		name   string
		ext    string
		writer Writer
		want   string
	}{
		{
			name:   "srt",
			ext:    ".srt",
			writer: &SRTWriter{},
			want: "1\n00:00:00,000 --> 00:00:01,000\na\n\n" +
				"2\n00:00:01,000 --> 00:00:02,000\n\n\n" +
				"3\n00:00:02,000 --> 00:00:03,000\n\n\n" +
				"4\n00:00:03,000 --> 00:00:04,000\nb\n\n",
		},
		{
			name:   "vtt",
			ext:    ".vtt",
			writer: &VTTWriter{},
			want: "WEBVTT\n\n" +
				"1\n00:00:00.000 --> 00:00:01.000\na\n\n" +
				"2\n00:00:01.000 --> 00:00:02.000\n\n\n" +
				"3\n00:00:02.000 --> 00:00:03.000\n\n\n" +
				"4\n00:00:03.000 --> 00:00:04.000\nb\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "blank"+tt.ext)
			if err := tt.writer.Write(segs, path); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read output: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}

			file, err := Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			parsed := file.Segments()
			if len(parsed) != len(segs) {
				t.Fatalf("got %d segments, want %d", len(parsed), len(segs))
			}
			for i := range segs {
				if parsed[i].Start != segs[i].Start || parsed[i].End != segs[i].End {
					t.Errorf("segment %d timing: got %v-%v, want %v-%v",
						i, parsed[i].Start, parsed[i].End, segs[i].Start, segs[i].End)
				}
				if parsed[i].Text != wantTexts[i] {
					t.Errorf("segment %d text: got %q, want %q", i, parsed[i].Text, wantTexts[i])
				}
			}
		})
	}
}

func TestWriteNoSegments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := (&SRTWriter{}).Write(nil, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestSRTRoundTrip(t *testing.T) {
	segs := []Segment{
		{Start: 0.12, End: 2.5, Text: "First line"},
		{Start: 2.5, End: 4.75, Text: "Second\nspans two lines"},
		{Start: 3725.004, End: 3727, Text: "Later"},
	}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.srt")
	if err := (&SRTWriter{}).Write(segs, first); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	file, err := Open(first)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	parsed := file.Segments()
	if len(parsed) != len(segs) {
		t.Fatalf("got %d segments, want %d", len(parsed), len(segs))
	}
	for i := range segs {
		if FormatTimestamp(parsed[i].Start) != FormatTimestamp(segs[i].Start) ||
			FormatTimestamp(parsed[i].End) != FormatTimestamp(segs[i].End) {
			t.Errorf("segment %d timing: got %v-%v, want %v-%v",
				i, parsed[i].Start, parsed[i].End, segs[i].Start, segs[i].End)
		}
		if parsed[i].Text != segs[i].Text {
			t.Errorf("segment %d text: got %q, want %q", i, parsed[i].Text, segs[i].Text)
		}
	}

	// writing the parsed segments again is byte-identical
	second := filepath.Join(dir, "second.srt")
	if err := file.Write(second); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if string(a) != string(b) {
		t.Errorf("rewrite differs:\n%s\n---\n%s", a, b)
	}
}

func TestWriteReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := os.WriteFile(path, []byte("stale content that is long"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	segs := []Segment{{Start: 0, End: 1, Text: "fresh"}}
	if err := (&SRTWriter{}).Write(segs, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	if strings.Contains(string(got), "stale") {
		t.Errorf("old content survived: %q", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestWriteFailsWhenParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	err := (&SRTWriter{}).Write(
		[]Segment{{Start: 0, End: 1, Text: "x"}},
		filepath.Join(blocker, "out.srt"),
	)
	if err == nil {
		t.Fatal("expected error when parent is a regular file")
	}
}

func TestNewWriter(t *testing.T) {
	if _, err := NewWriter(FormatSRT); err != nil {
		t.Errorf("srt: %v", err)
	}
	if _, err := NewWriter(FormatVTT); err != nil {
		t.Errorf("vtt: %v", err)
	}
	if _, err := NewWriter(Format("ass")); err == nil {
		t.Error("expected error for ass")
	}
}

func TestFormatFromExtension(t *testing.T) {
	if GetFormatFromExtension("a/b.VTT") != FormatVTT {
		t.Error("expected vtt")
	}
	if GetFormatFromExtension("a/b.srt") != FormatSRT {
		t.Error("expected srt")
	}
	if GetExtensionForFormat(FormatVTT) != ".vtt" {
		t.Error("expected .vtt")
	}
}
