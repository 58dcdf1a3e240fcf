package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var srtTimestampRegex = regexp.MustCompile(
	`(\d{2,}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2}),(\d{3})`,
)

type SRTFile struct {
	segments []Segment
}

func parseSRTFile(path string) (*SRTFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	segments, err := parseSRT(file)
	if err != nil {
		return nil, err
	}
	return &SRTFile{segments: segments}, nil
}

func parseSRT(r io.Reader) ([]Segment, error) {
	var segments []Segment
	scanner := bufio.NewScanner(r)

	var current *Segment
	timed := false
	var textLines []string
	lineNum := 0

	flush := func() {
		if current != nil && timed {
			current.Text = strings.Join(textLines, "\n")
			segments = append(segments, *current)
		}
		current = nil
		timed = false
		textLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimRight(line, "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if current == nil {
			if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				current = &Segment{}
				continue
			}
		}

		if current != nil && !timed {
			matches := srtTimestampRegex.FindStringSubmatch(line)
			if len(matches) == 9 {
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
				current.Start = start
				current.End = end
				timed = true
				continue
			}
		}

		if current != nil && timed {
			textLines = append(textLines, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT file: %w", err)
	}

	return segments, nil
}

func parseClock(hours, minutes, seconds, millis string) (float64, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}
	return clockToSeconds(h, m, s, ms), nil
}

func (f *SRTFile) Format() Format {
	return FormatSRT
}

func (f *SRTFile) Segments() []Segment {
	return f.segments
}

func (f *SRTFile) SetText(index int, text string) error {
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

func (f *SRTFile) Write(path string) error {
	return (&SRTWriter{}).Write(f.segments, path)
}
