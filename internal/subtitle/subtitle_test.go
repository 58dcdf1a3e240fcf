package subtitle

import (
	"errors"
	"math"
	"testing"
)

func TestNewSegment(t *testing.T) {
	tests := []struct {
		name    string
		start   float64
		end     float64
		wantErr bool
	}{
		{"valid", 0, 1.5, false},
		{"zero length", 2, 2, true},
		{"reversed", 3, 2, true},
		{"negative start", -0.5, 1, true},
		{"nan", math.NaN(), 1, true},
		{"infinite end", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := NewSegment(tt.start, tt.end, "text")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTiming) {
					t.Errorf("got %v, want ErrInvalidTiming", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if seg.Start != tt.start || seg.End != tt.end || seg.Text != "text" {
				t.Errorf("got %+v", seg)
			}
		})
	}
}

func TestSegmentWithTextKeepsTiming(t *testing.T) {
	seg := Segment{Start: 1.25, End: 2.5, Text: "hello"}
	got := seg.WithText("hola")
	if got.Start != seg.Start || got.End != seg.End {
		t.Errorf("timing changed: got %v-%v", got.Start, got.End)
	}
	if got.Text != "hola" || seg.Text != "hello" {
		t.Errorf("got %q (original %q)", got.Text, seg.Text)
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"srt", ".srt", "vtt", ".vtt"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseFormat("ass"); err == nil {
		t.Error("expected error for ass")
	}
}
