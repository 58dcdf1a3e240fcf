package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	vttTimestampRegex = regexp.MustCompile(
		`(\d{2,}):(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})\.(\d{3})`,
	)
	vttShortTimestampRegex = regexp.MustCompile(
		`^(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(\d{2}):(\d{2})\.(\d{3})`,
	)
)

type VTTFile struct {
	segments []Segment
}

func parseVTTFile(path string) (*VTTFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open VTT file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	segments, err := parseVTT(file)
	if err != nil {
		return nil, err
	}
	return &VTTFile{segments: segments}, nil
}

func parseVTT(r io.Reader) ([]Segment, error) {
	var segments []Segment
	scanner := bufio.NewScanner(r)

	var current *Segment
	var textLines []string
	lineNum := 0
	headerParsed := false

	flush := func() {
		if current != nil {
			current.Text = strings.Join(textLines, "\n")
			segments = append(segments, *current)
		}
		current = nil
		textLines = nil
	}

	skipBlock := func() {
		for scanner.Scan() {
			lineNum++
			if strings.TrimSpace(scanner.Text()) == "" {
				break
			}
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if !headerParsed && strings.HasPrefix(trimmed, "WEBVTT") {
			headerParsed = true
			continue
		}

		if current == nil &&
			(strings.HasPrefix(trimmed, "NOTE") ||
				strings.HasPrefix(trimmed, "STYLE")) {
			skipBlock()
			continue
		}

		if trimmed == "" {
			flush()
			continue
		}

		if matches := vttTimestampRegex.FindStringSubmatch(line); len(matches) == 9 {
			flush()
			start, err := parseClock(
				matches[1], matches[2], matches[3], matches[4],
			)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid start timestamp at line %d: %w",
					lineNum,
					err,
				)
			}
			end, err := parseClock(
				matches[5], matches[6], matches[7], matches[8],
			)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid end timestamp at line %d: %w",
					lineNum,
					err,
				)
			}
			current = &Segment{Start: start, End: end}
			continue
		}

		if matches := vttShortTimestampRegex.FindStringSubmatch(line); len(matches) == 7 {
			flush()
			start, err := parseClock(
				"00", matches[1], matches[2], matches[3],
			)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid start timestamp at line %d: %w",
					lineNum,
					err,
				)
			}
			end, err := parseClock(
				"00", matches[4], matches[5], matches[6],
			)
			if err != nil {
				return nil, fmt.Errorf(
					"invalid end timestamp at line %d: %w",
					lineNum,
					err,
				)
			}
			current = &Segment{Start: start, End: end}
			continue
		}

		// cue identifiers precede the timing line and are dropped
		if current != nil {
			textLines = append(textLines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading VTT file: %w", err)
	}

	return segments, nil
}

func (f *VTTFile) Format() Format {
	return FormatVTT
}

func (f *VTTFile) Segments() []Segment {
	return f.segments
}

func (f *VTTFile) SetText(index int, text string) error {
	if index < 0 || index >= len(f.segments) {
		return fmt.Errorf(
			"index %d out of range (0-%d)",
			index,
			len(f.segments)-1,
		)
	}
	f.segments[index].Text = text
	return nil
}

func (f *VTTFile) Write(path string) error {
	return (&VTTWriter{}).Write(f.segments, path)
}
