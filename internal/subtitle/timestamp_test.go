package subtitle

import (
	"fmt"
	"math"
	"regexp"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{0.0005, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{59.999, "00:00:59,999"},
		{61.25, "00:01:01,250"},
		{3599.999, "00:59:59,999"},
		{3600, "01:00:00,000"},
		{3661.001, "01:01:01,001"},
		{359999.999, "99:59:59,999"},
		{360000, "100:00:00,000"},
		{-2, "00:00:00,000"},
		{math.NaN(), "00:00:00,000"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.seconds), func(t *testing.T) {
			if got := FormatTimestamp(tt.seconds); got != tt.want {
				t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestFormatVTTTimestamp(t *testing.T) {
	if got := FormatVTTTimestamp(3661.5); got != "01:01:01.500" {
		t.Errorf("got %q, want %q", got, "01:01:01.500")
	}
}

func TestFormatTimestampMatchesIntegerClock(t *testing.T) {
	shape := regexp.MustCompile(`^\d{2}:[0-5]\d:[0-5]\d,\d{3}$`)

	// stride through [0, 100h) in ms so every field gets exercised
	for ms := int64(0); ms < 360000000; ms += 7187 {
		seconds := float64(ms) / 1000
		want := fmt.Sprintf(
			"%02d:%02d:%02d,%03d",
			ms/3600000,
			(ms%3600000)/60000,
			(ms%60000)/1000,
			ms%1000,
		)
		got := FormatTimestamp(seconds)
		if got != want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", seconds, got, want)
		}
		if !shape.MatchString(got) {
			t.Fatalf("FormatTimestamp(%v) = %q has wrong shape", seconds, got)
		}
	}
}
