package transcribe

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/autosub/internal/audio"
	"github.com/mgpai22/autosub/internal/logging"
)

// scripted engine keyed by audio path
type fakeEngine struct {
	results map[string][]RawSegment
	errs    map[string]error
	calls   []string
	closed  bool
}

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	f.calls = append(f.calls, audioPath)
	if err := f.errs[audioPath]; err != nil {
		return nil, err
	}
	return f.results[audioPath], nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestOrchestratorAppliesOffsets(t *testing.T) {
	engine := &fakeEngine{results: map[string][]RawSegment{
		"c0": {{T0: 0, T1: 250, Text: " first "}},
		"c1": {{T0: 100, T1: 350, Text: "second"}, {T0: 400, T1: 500, Text: "third"}},
	}}
	orch, err := NewOrchestrator(1, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	// deliberately out of order
	chunks := []audio.Chunk{
		{Index: 1, Path: "c1", Offset: 300},
		{Index: 0, Path: "c0", Offset: 0},
	}

	segs, report, err := orch.Transcribe(context.Background(), chunks, NewHandle(EngineWhisperCpp, engine))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	want := []struct {
		start, end float64
		text       string
	}{
		{0, 2.5, "first"},
		{301, 303.5, "second"},
		{304, 305, "third"},
	}
	for i, w := range want {
		if !approx(segs[i].Start, w.start) || !approx(segs[i].End, w.end) || segs[i].Text != w.text {
			t.Errorf("segment %d: got %+v, want %+v", i, segs[i], w)
		}
	}

	if engine.calls[0] != "c0" || engine.calls[1] != "c1" {
		t.Errorf("chunks dispatched out of order: %v", engine.calls)
	}
	if chunks[0].Index != 1 {
		t.Error("input slice was reordered")
	}
	if report.Succeeded() != 2 || report.Failed() != 0 {
		t.Errorf("report: %+v", report)
	}
}

func TestOrchestratorSkipsFailedChunk(t *testing.T) {
	engine := &fakeEngine{
		results: map[string][]RawSegment{
			"c0": {{T0: 0, T1: 100, Text: "a"}},
			"c2": {{T0: 0, T1: 100, Text: "c"}},
		},
		errs: map[string]error{"c1": errors.New("decoder crashed")},
	}

	core, logs := observer.New(zapcore.WarnLevel)
	orch, _ := NewOrchestrator(1, logging.FromCore(core))

	chunks := []audio.Chunk{
		{Index: 0, Path: "c0", Offset: 0},
		{Index: 1, Path: "c1", Offset: 300},
		{Index: 2, Path: "c2", Offset: 600},
	}
	segs, report, err := orch.Transcribe(context.Background(), chunks, NewHandle(EngineWhisperCpp, engine))
	if err != nil {
		t.Fatalf("partial failure must not be fatal: %v", err)
	}

	if len(segs) != 2 || segs[0].Text != "a" || segs[1].Text != "c" {
		t.Fatalf("got %+v", segs)
	}
	if !approx(segs[1].Start, 600) {
		t.Errorf("chunk 2 offset: got %v", segs[1].Start)
	}
	if report.Failed() != 1 || report.Chunks[1].Err == nil {
		t.Errorf("report: %+v", report)
	}
	if logs.FilterMessage("Chunk transcription failed, skipping").Len() != 1 {
		t.Error("expected a warning for the failed chunk")
	}
}

func TestOrchestratorLoadFailureOnFirstChunkIsFatal(t *testing.T) {
	engine := &fakeEngine{errs: map[string]error{"c0": ErrEngineLoad}}
	orch, _ := NewOrchestrator(1, nil)

	chunks := []audio.Chunk{{Index: 0, Path: "c0"}, {Index: 1, Path: "c1", Offset: 300}}
	_, _, err := orch.Transcribe(context.Background(), chunks, NewHandle(EngineWhisperCpp, engine))
	if !errors.Is(err, ErrEngineLoad) {
		t.Fatalf("got %v, want ErrEngineLoad", err)
	}
	if len(engine.calls) != 1 {
		t.Errorf("run continued after fatal error: %v", engine.calls)
	}
}

func TestOrchestratorLoadFailureOnLaterChunkIsSkipped(t *testing.T) {
	engine := &fakeEngine{
		results: map[string][]RawSegment{"c0": {{T0: 0, T1: 100, Text: "a"}}},
		errs:    map[string]error{"c1": ErrEngineLoad},
	}
	orch, _ := NewOrchestrator(1, nil)

	chunks := []audio.Chunk{{Index: 0, Path: "c0"}, {Index: 1, Path: "c1", Offset: 300}}
	segs, report, err := orch.Transcribe(context.Background(), chunks, NewHandle(EngineWhisperCpp, engine))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || report.Failed() != 1 {
		t.Errorf("segs=%+v report=%+v", segs, report)
	}
}

func TestOrchestratorDropsDegenerateSegments(t *testing.T) {
	engine := &fakeEngine{results: map[string][]RawSegment{
		"c0": {
			{T0: 100, T1: 100, Text: "zero length"},
			{T0: 300, T1: 200, Text: "reversed"},
			{T0: 200, T1: 300, Text: "kept"},
		},
	}}
	orch, _ := NewOrchestrator(1, nil)

	segs, report, err := orch.Transcribe(context.Background(),
		[]audio.Chunk{{Index: 0, Path: "c0"}}, NewHandle(EngineWhisperCpp, engine))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "kept" {
		t.Fatalf("got %+v", segs)
	}
	if report.Dropped() != 2 {
		t.Errorf("dropped %d, want 2", report.Dropped())
	}
	for _, s := range segs {
		if s.End <= s.Start {
			t.Errorf("degenerate segment emitted: %+v", s)
		}
	}
}

func TestOrchestratorStopsOnCancel(t *testing.T) {
	engine := &fakeEngine{}
	orch, _ := NewOrchestrator(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := orch.Transcribe(ctx, []audio.Chunk{{Index: 0, Path: "c0"}}, NewHandle(EngineWhisperCpp, engine))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if len(engine.calls) != 0 {
		t.Errorf("engine called after cancel: %v", engine.calls)
	}
}

func TestNewOrchestratorRejectsConcurrency(t *testing.T) {
	for _, workers := range []int{0, 2, 8} {
		if _, err := NewOrchestrator(workers, nil); !errors.Is(err, ErrConcurrencyUnsupported) {
			t.Errorf("workers=%d: got %v, want ErrConcurrencyUnsupported", workers, err)
		}
	}
}
