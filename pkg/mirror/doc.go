// Package mirror keeps live, mutation-tracked mirrors of Store records.
//
// A Controller opens a Handle for (namespace, id): it loads the record, or
// creates it from a default value, wraps the value in a tracker.Mirror and
// subscribes a write-back callback. Every field write on the mirror then
// enqueues a write-back of the full value to the Store. Write-backs run in
// the background, one at a time and in write order, on a per-handle queue.
//
//	ctrl, _ := mirror.New(store, mirror.DefaultConfig())
//	h, _ := ctrl.Namespace("counters").Open(ctx, "c1", types.Value{"count": 0})
//	h.Mirror().Set("count", 1) // persisted asynchronously
//	_ = h.Patch(ctx, func(_ context.Context, raw types.Value) error {
//	    raw["count"] = 2
//	    raw["label"] = "x"
//	    return nil
//	}) // one write-back for both fields
//	_ = h.Close(ctx)
//
// Each write-back carries every field of the value, including a field named
// "id" if the value has one; separating keys from values is the Store's job.
//
// Two handles on the same record are independent and overwrite each other's
// write-backs; the last write-back wins.
package mirror
