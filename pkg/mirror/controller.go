package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/mirrors/pkg/observability"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// Controller binds Store records to mirrors. It is the only component that
// calls Store.Set on behalf of a mirror.
type Controller struct {
	store    types.Store
	cfg      Config
	observer observability.Observer
}

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver replaces the observer selected by Config.Observer.
func WithObserver(o observability.Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// New creates a Controller over store. Zero fields in cfg take their
// DefaultConfig values.
func New(store types.Store, cfg Config, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("mirror: store is required")
	}

	merged := DefaultConfig()
	merged.Merge(&cfg)

	obs, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("mirror: %w", err)
	}

	c := &Controller{
		store:    store,
		cfg:      merged,
		observer: obs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Open returns a Handle mirroring the record (namespace, id). If no record
// exists it is created with defaultValue; otherwise the stored value is used
// and defaultValue is ignored.
func (c *Controller) Open(ctx context.Context, namespace, id string, defaultValue types.Value) (*Handle, error) {
	if err := types.CheckKey(namespace, id); err != nil {
		return nil, fmt.Errorf("mirror: open %s/%s: %w", namespace, id, err)
	}

	rec, ok, err := c.store.Get(ctx, namespace, id)
	if err != nil {
		return nil, fmt.Errorf("mirror: get %s/%s: %w", namespace, id, err)
	}

	created := false
	if !ok {
		if defaultValue == nil {
			defaultValue = types.Value{}
		}
		rec, err = c.store.Create(ctx, namespace, id, defaultValue)
		if err != nil {
			return nil, fmt.Errorf("mirror: create %s/%s: %w", namespace, id, err)
		}
		created = true
		c.emit(ctx, EventCreate, observability.LevelInfo, map[string]any{
			"namespace": namespace,
			"id":        id,
		})
	}

	h := newHandle(c, namespace, id, rec.Value)
	c.emit(ctx, EventOpen, observability.LevelInfo, map[string]any{
		"handle":    h.id,
		"namespace": namespace,
		"id":        id,
		"version":   rec.Version,
		"created":   created,
	})
	return h, nil
}

// Namespace returns an accessor that opens handles within one namespace.
// The name is validated when a handle is opened.
func (c *Controller) Namespace(name string) *Namespace {
	return &Namespace{ctrl: c, name: name}
}

// Namespace opens handles for records in a single namespace.
type Namespace struct {
	ctrl *Controller
	name string
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// Open is Controller.Open within this namespace.
func (n *Namespace) Open(ctx context.Context, id string, defaultValue types.Value) (*Handle, error) {
	return n.ctrl.Open(ctx, n.name, id, defaultValue)
}
