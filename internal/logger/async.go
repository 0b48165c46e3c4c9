package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Closer flushes and stops the async pump on shutdown.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// entry pairs a record with the handler clone that accepted it, so
// WithAttrs/WithGroup clones format with their own attributes even
// though they share one pump.
type entry struct {
	h   slog.Handler
	rec slog.Record
}

// pump is the shared delivery goroutine behind every AsyncHandler clone.
type pump struct {
	queue   chan entry
	done    chan struct{}
	dropped atomic.Int64
}

func (p *pump) run() {
	defer close(p.done)
	for e := range p.queue {
		_ = e.h.Handle(context.Background(), e.rec)
	}
}

// AsyncHandler decouples record formatting from the caller: Handle only
// enqueues, and a single goroutine writes in arrival order. When the
// queue is full the record is dropped rather than blocking the hot path;
// the drop count is reported once on Close.
type AsyncHandler struct {
	inner slog.Handler
	p     *pump
}

// NewAsyncHandler wraps inner with a queue of the given capacity.
func NewAsyncHandler(inner slog.Handler, capacity int) *AsyncHandler {
	if capacity < 1 {
		capacity = 1
	}
	h := &AsyncHandler{
		inner: inner,
		p: &pump{
			queue: make(chan entry, capacity),
			done:  make(chan struct{}),
		},
	}
	go h.p.run()
	return h
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it if the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.p.queue <- entry{h: h.inner, rec: rec}:
	default:
		h.p.dropped.Add(1)
	}
	return nil
}

// WithAttrs clones the handler around the same pump.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), p: h.p}
}

// WithGroup clones the handler around the same pump.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), p: h.p}
}

// Dropped returns how many records were discarded because the queue was
// full.
func (h *AsyncHandler) Dropped() int64 {
	return h.p.dropped.Load()
}

// Close drains the queue, stops the pump, and reports drops if any
// occurred.
func (h *AsyncHandler) Close() {
	close(h.p.queue)
	<-h.p.done
	if n := h.p.dropped.Load(); n > 0 {
		rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async log records dropped", 0)
		rec.AddAttrs(slog.Int64("count", n))
		_ = h.inner.Handle(context.Background(), rec)
	}
}
