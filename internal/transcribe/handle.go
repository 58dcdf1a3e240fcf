package transcribe

import (
	"context"
	"sync"
)

// Handle owns one loaded engine. A handle serves one caller at a time;
// overlapping calls fail with ErrEngineBusy instead of reaching the engine.
type Handle struct {
	mu     sync.Mutex
	kind   EngineKind
	engine Engine
}

func NewHandle(kind EngineKind, engine Engine) *Handle {
	return &Handle{kind: kind, engine: engine}
}

func (h *Handle) Kind() EngineKind {
	return h.kind
}

func (h *Handle) Transcribe(ctx context.Context, audioPath string) ([]RawSegment, error) {
	if !h.mu.TryLock() {
		return nil, ErrEngineBusy
	}
	defer h.mu.Unlock()

	if h.engine == nil {
		return nil, ErrEngineClosed
	}
	return h.engine.Transcribe(ctx, audioPath)
}

// Close releases the engine. It waits for an in-flight call and is safe
// to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.engine == nil {
		return nil
	}
	err := h.engine.Close()
	h.engine = nil
	return err
}
