package mirror

import (
	"context"
	"errors"
	"sync"

	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// writeBack is one queued Store.Set. done is closed once it has been
// applied; err is valid after that.
type writeBack struct {
	seq   uint64
	field string
	patch bool
	value types.Value

	done chan struct{}
	err  error
}

// wait blocks until the write-back is applied or ctx ends. A ctx that ends
// first does not cancel the write-back.
func (w *writeBack) wait(ctx context.Context) error {
	select {
	case <-w.done:
		return w.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeQueue applies write-backs one at a time in FIFO order. A drain
// goroutine runs only while the queue is non-empty, so an idle handle holds
// no goroutine.
type writeQueue struct {
	apply func(*writeBack) error

	mu       sync.Mutex
	pending  []*writeBack
	running  bool
	seq      uint64
	last     *writeBack
	failures []error
}

func newWriteQueue(apply func(*writeBack) error) *writeQueue {
	return &writeQueue{apply: apply}
}

// enqueue appends a write-back of value. value must not be shared with the
// mirror; callers pass a snapshot.
func (q *writeQueue) enqueue(value types.Value, field string, patch bool) *writeBack {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	w := &writeBack{
		seq:   q.seq,
		field: field,
		patch: patch,
		value: value,
		done:  make(chan struct{}),
	}
	q.pending = append(q.pending, w)
	q.last = w

	if !q.running {
		q.running = true
		go q.drain()
	}
	return w
}

func (q *writeQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		w := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		w.err = q.apply(w)
		// Patch callers receive their own error; everything else is
		// collected for the next flush.
		if w.err != nil && !w.patch {
			q.mu.Lock()
			q.failures = append(q.failures, w.err)
			q.mu.Unlock()
		}
		close(w.done)
	}
}

// flush waits for every write-back enqueued so far and returns the
// collected failures, clearing them.
func (q *writeQueue) flush(ctx context.Context) error {
	q.mu.Lock()
	last := q.last
	q.mu.Unlock()

	if last != nil {
		select {
		case <-last.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	q.mu.Lock()
	failures := q.failures
	q.failures = nil
	q.mu.Unlock()

	return errors.Join(failures...)
}

// pendingCount returns the number of write-backs not yet started.
func (q *writeQueue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
