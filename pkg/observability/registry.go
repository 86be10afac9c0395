package observability

import (
	"fmt"
	"log/slog"
	"sync"
)

// registry maps the names accepted by mirror.Config.Observer and the
// `observer` config key to observers.
var (
	registryMu sync.RWMutex
	registry   = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
	}
)

// GetObserver looks up the observer a controller config names. "noop" and
// "slog" (writing to slog.Default()) are always available.
func GetObserver(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	obs, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return obs, nil
}

// RegisterObserver makes observer selectable by name, replacing any earlier
// registration.
func RegisterObserver(name string, observer Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = observer
}
