package translate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/mgpai22/autosub/internal/logging"
	"github.com/mgpai22/autosub/internal/subtitle"
)

type RetryOptions struct {
	Attempts int           // calls per segment before keeping the original
	Backoff  time.Duration // pause between attempts
	Interval time.Duration // minimum spacing between backend calls
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Attempts: 3,
		Backoff:  time.Second,
		Interval: 100 * time.Millisecond,
	}
}

// translation tally for the run summary
type Stats struct {
	Translated int
	Fallback   int
	Empty      int
}

// Retrier translates segments one at a time, retrying each a fixed number
// of times and keeping the original text when the backend keeps failing.
type Retrier struct {
	backend Backend
	opts    RetryOptions
	limiter *rate.Limiter
	log     *logging.Logger
}

func NewRetrier(backend Backend, opts RetryOptions, log *logging.Logger) *Retrier {
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if log == nil {
		log = logging.Nop()
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Retrier{
		backend: backend,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// Translate returns a new slice of the same length and order. Timing is
// copied unchanged. Whitespace-only text becomes "" without a backend call.
// Once ctx is done, remaining segments keep their original text.
func (r *Retrier) Translate(
	ctx context.Context,
	segments []subtitle.Segment,
	target language.Tag,
) ([]subtitle.Segment, Stats) {
	out := make([]subtitle.Segment, len(segments))
	var stats Stats

	r.log.Infow("Translating segments",
		"count", len(segments),
		"target", target.String(),
	)

	for i, seg := range segments {
		if strings.TrimSpace(seg.Text) == "" {
			out[i] = seg.WithText("")
			stats.Empty++
			continue
		}

		text, ok := r.translateOne(ctx, seg.Text, target)
		if !ok {
			r.log.Warnw("Translation failed, keeping original",
				"segment", i,
				"text", truncateString(seg.Text, 60),
			)
			out[i] = seg
			stats.Fallback++
			continue
		}
		out[i] = seg.WithText(text)
		stats.Translated++
	}

	return out, stats
}

func (r *Retrier) translateOne(ctx context.Context, text string, target language.Tag) (string, bool) {
	for attempt := 1; attempt <= r.opts.Attempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", false
		}

		translated, err := r.backend.Translate(ctx, text, target)
		if err == nil {
			return translated, true
		}
		if ctx.Err() != nil {
			return "", false
		}

		r.log.Debugw("Translation attempt failed",
			"attempt", attempt,
			"error", err,
		)
		if attempt < r.opts.Attempts && !sleep(ctx, r.opts.Backoff) {
			return "", false
		}
	}
	return "", false
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
