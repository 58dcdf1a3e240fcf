package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SubRip format
type SRTWriter struct{}

// WebVTT format
type VTTWriter struct{}

func NewWriter(format Format) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{}, nil
	case FormatVTT:
		return &VTTWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writes the segments to an SRT file, replacing it atomically
func (w *SRTWriter) Write(segments []Segment, path string) error {
	return writeAtomic(path, renderSRT(segments))
}

// writes the segments to a VTT file, replacing it atomically
func (w *VTTWriter) Write(segments []Segment, path string) error {
	return writeAtomic(path, renderVTT(segments))
}

func renderSRT(segments []Segment) []byte {
	var sb strings.Builder
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)

		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimestamp(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

func renderVTT(segments []Segment) []byte {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)

		// optional cue identifier
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatVTTTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatVTTTimestamp(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

// writeAtomic stages data next to path and renames it into place, so a
// failed write never leaves a truncated file behind under the final name.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync subtitles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close subtitles: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move subtitles into place: %w", err)
	}
	return nil
}

// subtitle format based on file extension
func GetFormatFromExtension(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return FormatVTT
	default:
		return FormatSRT
	}
}

// file extension for a format
func GetExtensionForFormat(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	default:
		return ".srt"
	}
}
