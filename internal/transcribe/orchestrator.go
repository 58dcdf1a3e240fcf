package transcribe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mgpai22/autosub/internal/audio"
	"github.com/mgpai22/autosub/internal/logging"
	"github.com/mgpai22/autosub/internal/subtitle"
)

// Policy decides how chunks are dispatched to the engine. fn returns an
// error only when the whole run must stop.
type Policy interface {
	Dispatch(
		ctx context.Context,
		chunks []audio.Chunk,
		fn func(ctx context.Context, position int, chunk audio.Chunk) error,
	) error
}

// one chunk at a time, in index order
type Sequential struct{}

func (Sequential) Dispatch(
	ctx context.Context,
	chunks []audio.Chunk,
	fn func(ctx context.Context, position int, chunk audio.Chunk) error,
) error {
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, i, chunk); err != nil {
			return err
		}
	}
	return nil
}

// per-chunk outcome for the run summary
type ChunkOutcome struct {
	Index    int
	Offset   float64
	Segments int
	Dropped  int
	Err      error
}

type Report struct {
	Chunks []ChunkOutcome
}

func (r Report) Failed() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Err != nil {
			n++
		}
	}
	return n
}

func (r Report) Succeeded() int {
	return len(r.Chunks) - r.Failed()
}

// Dropped counts segments discarded for degenerate timing.
func (r Report) Dropped() int {
	n := 0
	for _, c := range r.Chunks {
		n += c.Dropped
	}
	return n
}

type Orchestrator struct {
	policy Policy
	log    *logging.Logger
}

// NewOrchestrator accepts only workers == 1; any other value is a
// configuration error rather than a silent downgrade.
func NewOrchestrator(workers int, log *logging.Logger) (*Orchestrator, error) {
	if err := CheckWorkers(workers); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{policy: Sequential{}, log: log}, nil
}

// Transcribe runs every chunk through the engine and merges the results
// onto the global timeline: chunk index order, engine order within a chunk.
// A failed chunk is skipped; only an engine load failure on the first chunk
// or cancellation aborts the run.
func (o *Orchestrator) Transcribe(
	ctx context.Context,
	chunks []audio.Chunk,
	h *Handle,
) ([]subtitle.Segment, Report, error) {
	ordered := make([]audio.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	var (
		segments []subtitle.Segment
		report   Report
	)

	err := o.policy.Dispatch(ctx, ordered, func(ctx context.Context, position int, chunk audio.Chunk) error {
		o.log.Infow("Processing chunk",
			"chunk", fmt.Sprintf("%d/%d", position+1, len(ordered)),
			"offset", chunk.Offset,
		)

		outcome := ChunkOutcome{Index: chunk.Index, Offset: chunk.Offset}
		raw, err := h.Transcribe(ctx, chunk.Path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if position == 0 && errors.Is(err, ErrEngineLoad) {
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			o.log.Warnw("Chunk transcription failed, skipping",
				"chunk", chunk.Index,
				"error", err,
			)
			outcome.Err = err
			report.Chunks = append(report.Chunks, outcome)
			return nil
		}

		for _, r := range raw {
			seg, err := subtitle.NewSegment(
				float64(r.T0)/100.0+chunk.Offset,
				float64(r.T1)/100.0+chunk.Offset,
				strings.TrimSpace(r.Text),
			)
			if err != nil {
				o.log.Debugw("Dropping segment", "chunk", chunk.Index, "error", err)
				outcome.Dropped++
				continue
			}
			segments = append(segments, seg)
			outcome.Segments++
		}
		report.Chunks = append(report.Chunks, outcome)
		return nil
	})
	if err != nil {
		return nil, report, err
	}

	return segments, report, nil
}
