package subtitle

import (
	"fmt"
	"math"
)

// Absorbs binary representation error in seconds*1000 so that values
// such as 3599.999 land on 999 ms instead of 998.
const millisTolerance = 1e-6

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
)

type clock struct {
	hours   int64
	minutes int64
	seconds int64
	millis  int64
}

func toClock(seconds float64) clock {
	if math.IsNaN(seconds) || seconds <= 0 {
		return clock{}
	}
	total := int64(math.Floor(seconds*millisPerSecond + millisTolerance))
	return clock{
		hours:   total / millisPerHour,
		minutes: (total % millisPerHour) / millisPerMinute,
		seconds: (total % millisPerMinute) / millisPerSecond,
		millis:  total % millisPerSecond,
	}
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm. Hours widen past 99.
func FormatTimestamp(seconds float64) string {
	c := toClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", c.hours, c.minutes, c.seconds, c.millis)
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm.
func FormatVTTTimestamp(seconds float64) string {
	c := toClock(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", c.hours, c.minutes, c.seconds, c.millis)
}

func clockToSeconds(hours, minutes, seconds, millis int) float64 {
	total := int64(hours)*millisPerHour +
		int64(minutes)*millisPerMinute +
		int64(seconds)*millisPerSecond +
		int64(millis)
	return float64(total) / millisPerSecond
}
