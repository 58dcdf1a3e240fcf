package subtitle

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTiming is returned for segments whose bounds are not 0 <= start < end.
var ErrInvalidTiming = errors.New("invalid segment timing")

// single timed unit of text; times are seconds on the global timeline
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// NewSegment validates the bounds before building the segment.
func NewSegment(start, end float64, text string) (Segment, error) {
	if math.IsNaN(start) || math.IsNaN(end) ||
		math.IsInf(start, 0) || math.IsInf(end, 0) {
		return Segment{}, fmt.Errorf(
			"%w: non-finite bounds (%v, %v)",
			ErrInvalidTiming,
			start,
			end,
		)
	}
	if start < 0 {
		return Segment{}, fmt.Errorf(
			"%w: negative start %v",
			ErrInvalidTiming,
			start,
		)
	}
	if end <= start {
		return Segment{}, fmt.Errorf(
			"%w: end %v is not after start %v",
			ErrInvalidTiming,
			end,
			start,
		)
	}
	return Segment{Start: start, End: end, Text: text}, nil
}

// copy of the segment with replaced text, timing untouched
func (s Segment) WithText(text string) Segment {
	s.Text = text
	return s
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "srt", ".srt", "SRT":
		return FormatSRT, nil
	case "vtt", ".vtt", "VTT":
		return FormatVTT, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt or vtt", name)
	}
}

// interface for writing subtitles to files
type Writer interface {
	Write(segments []Segment, path string) error
}
