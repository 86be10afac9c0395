package mirror

import (
	"context"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/observability"
)

// Event types emitted by the controller.
const (
	EventOpen              observability.EventType = "mirror.open"
	EventCreate            observability.EventType = "mirror.create"
	EventWriteBackComplete observability.EventType = "mirror.writeback.complete"
	EventWriteBackFailed   observability.EventType = "mirror.writeback.failed"
	EventPatch             observability.EventType = "mirror.patch"
	EventPatchFailed       observability.EventType = "mirror.patch.failed"
	EventDispose           observability.EventType = "mirror.dispose"
)

const eventSource = "mirror"

func (c *Controller) emit(ctx context.Context, typ observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    eventSource,
		Data:      data,
	})
}
