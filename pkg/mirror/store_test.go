package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/mesh-intelligence/mirrors/pkg/observability"
	"github.com/mesh-intelligence/mirrors/pkg/types"
)

// setCall is one Store.Set observed by fakeStore.
type setCall struct {
	namespace string
	id        string
	value     types.Value
}

// fakeStore is an in-memory types.Store that records calls and can inject
// failures or block Set.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]types.Record
	sets    []setCall
	creates int

	getErr    error
	createErr error
	// setErr, when set, is consulted with the 1-based Set call number.
	setErr func(n int) error
	// gate, when set, makes each Set wait for a receive before applying.
	gate chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]types.Record)}
}

func key(namespace, id string) string { return namespace + "/" + id }

func (s *fakeStore) Get(_ context.Context, namespace, id string) (types.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return types.Record{}, false, s.getErr
	}
	rec, ok := s.records[key(namespace, id)]
	if !ok {
		return types.Record{}, false, nil
	}
	rec.Value = rec.Value.Clone()
	return rec, true, nil
}

func (s *fakeStore) Create(_ context.Context, namespace, id string, value types.Value) (types.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return types.Record{}, s.createErr
	}
	if _, ok := s.records[key(namespace, id)]; ok {
		return types.Record{}, types.ErrAlreadyExists
	}
	s.creates++
	now := time.Now()
	rec := types.Record{
		Namespace: namespace,
		ID:        id,
		Value:     value.Clone(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[key(namespace, id)] = rec
	rec.Value = rec.Value.Clone()
	return rec, nil
}

func (s *fakeStore) Set(_ context.Context, namespace, id string, value types.Value) error {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sets) + 1
	s.sets = append(s.sets, setCall{namespace: namespace, id: id, value: value.Clone()})
	if s.setErr != nil {
		if err := s.setErr(n); err != nil {
			return err
		}
	}
	rec, ok := s.records[key(namespace, id)]
	if !ok {
		return types.ErrNotFound
	}
	rec.Value = value.Clone()
	rec.Version++
	rec.UpdatedAt = time.Now()
	s.records[key(namespace, id)] = rec
	return nil
}

func (s *fakeStore) failSets(fn func(n int) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = fn
}

func (s *fakeStore) setCalls() []setCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]setCall, len(s.sets))
	copy(out, s.sets)
	return out
}

func (s *fakeStore) stored(namespace, id string) (types.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key(namespace, id)]
	return rec, ok
}

func (s *fakeStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// block makes subsequent Set calls wait until release is called.
func (s *fakeStore) block() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.gate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// eventRecorder collects observability events.
type eventRecorder struct {
	mu     sync.Mutex
	events []observability.Event
}

func (r *eventRecorder) OnEvent(_ context.Context, e observability.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []observability.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observability.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *eventRecorder) count(typ observability.EventType) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}
