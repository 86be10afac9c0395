package mirror

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/mirrors/pkg/observability"
	"github.com/mesh-intelligence/mirrors/pkg/tracker"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// PatchFunc mutates raw directly. Writes made through raw do not trigger
// write-backs; Patch performs a single one after PatchFunc returns.
//
// PatchFunc runs while the mirror's write lock is held: read and write
// through raw only. Calling the handle's mirror from inside it deadlocks,
// and other readers of the mirror wait until it returns.
type PatchFunc func(ctx context.Context, raw types.Value) error

// Handle is the caller's view of one mirrored record: the live mirror plus
// lifecycle controls. A Handle owns exactly one write-back subscription.
type Handle struct {
	ctrl      *Controller
	id        string
	namespace string
	recordID  string

	mirror      *tracker.Mirror
	queue       *writeQueue
	unsubscribe func()

	disposeOnce sync.Once
	disposed    atomic.Bool
}

func newHandle(c *Controller, namespace, recordID string, value types.Value) *Handle {
	h := &Handle{
		ctrl:      c,
		id:        uuid.Must(uuid.NewV7()).String(),
		namespace: namespace,
		recordID:  recordID,
		mirror:    tracker.Wrap(value),
	}
	h.queue = newWriteQueue(h.apply)
	h.unsubscribe = h.mirror.Subscribe(h.onWrite)
	return h
}

// ID returns the handle's unique identifier (UUIDv7).
func (h *Handle) ID() string { return h.id }

// Namespace returns the namespace of the mirrored record.
func (h *Handle) Namespace() string { return h.namespace }

// RecordID returns the id of the mirrored record.
func (h *Handle) RecordID() string { return h.recordID }

// Mirror returns the live mirror. It stays usable after Dispose, but writes
// are no longer persisted.
func (h *Handle) Mirror() *tracker.Mirror { return h.mirror }

// Disposed reports whether Dispose has been called.
func (h *Handle) Disposed() bool { return h.disposed.Load() }

// Pending returns the number of write-backs waiting to start.
func (h *Handle) Pending() int { return h.queue.pendingCount() }

// onWrite runs synchronously inside the mirror's write, after the value has
// changed, so the snapshot is exactly the state this write produced.
func (h *Handle) onWrite(field string) {
	if h.disposed.Load() {
		return
	}
	h.queue.enqueue(h.mirror.Snapshot(), field, false)
}

// Patch runs fn on the raw value and then writes the result back once. It
// returns after that write-back completes. If fn fails no write-back happens,
// changes fn already made are kept, and a *PatchError is returned. A failed
// write-back is returned as a *WriteBackError. If ctx ends while waiting,
// ctx.Err() is returned and the write-back still completes.
//
// fn holds the mirror's write lock for its whole run; it must not call
// h.Mirror().
func (h *Handle) Patch(ctx context.Context, fn PatchFunc) error {
	if h.disposed.Load() {
		return ErrHandleDisposed
	}

	var wb *writeBack
	err := h.mirror.Update(func(raw types.Value) error {
		if err := fn(ctx, raw); err != nil {
			return err
		}
		// Enqueue while writes are still blocked so no field write-back can
		// slip in ahead of this snapshot.
		wb = h.queue.enqueue(raw.Clone(), "", true)
		return nil
	})
	if err != nil {
		h.ctrl.emit(ctx, EventPatchFailed, observability.LevelWarning, h.eventData(map[string]any{
			"error": err.Error(),
		}))
		return &PatchError{Namespace: h.namespace, ID: h.recordID, Err: err}
	}

	h.ctrl.emit(ctx, EventPatch, observability.LevelVerbose, h.eventData(map[string]any{
		"seq": wb.seq,
	}))
	return wb.wait(ctx)
}

// Dispose stops persisting mirror writes. It is idempotent. Write-backs
// already enqueued still complete; use Flush or Close to wait for them.
func (h *Handle) Dispose() {
	h.disposeOnce.Do(func() {
		h.disposed.Store(true)
		h.unsubscribe()
		h.ctrl.emit(context.Background(), EventDispose, observability.LevelInfo, h.eventData(nil))
	})
}

// Flush waits for every write-back enqueued so far. It returns the failures
// of field-triggered write-backs since the previous Flush, joined, or
// ctx.Err() if ctx ends first.
func (h *Handle) Flush(ctx context.Context) error {
	return h.queue.flush(ctx)
}

// Close disposes the handle and flushes its queue.
func (h *Handle) Close(ctx context.Context) error {
	h.Dispose()
	return h.Flush(ctx)
}

// apply performs one write-back on the queue goroutine. It uses its own
// context so that callers going away never cancel a queued write.
func (h *Handle) apply(w *writeBack) error {
	ctx := context.Background()
	if timeout := h.ctrl.cfg.WriteTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	if err := h.ctrl.store.Set(ctx, h.namespace, h.recordID, w.value); err != nil {
		wbErr := &WriteBackError{
			Namespace: h.namespace,
			ID:        h.recordID,
			Seq:       w.seq,
			Field:     w.field,
			Err:       err,
		}
		h.ctrl.emit(ctx, EventWriteBackFailed, observability.LevelError, h.eventData(map[string]any{
			"seq":   w.seq,
			"field": w.field,
			"error": err.Error(),
		}))
		return wbErr
	}

	h.ctrl.emit(ctx, EventWriteBackComplete, observability.LevelVerbose, h.eventData(map[string]any{
		"seq":      w.seq,
		"field":    w.field,
		"duration": time.Since(start),
	}))
	return nil
}

func (h *Handle) eventData(extra map[string]any) map[string]any {
	data := map[string]any{
		"handle":    h.id,
		"namespace": h.namespace,
		"id":        h.recordID,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
