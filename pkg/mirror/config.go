package mirror

import "time"

// Config holds controller parameters.
type Config struct {
	// WriteTimeout bounds each Store.Set issued by a write-back. A negative
	// value disables the deadline.
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout,omitempty"`

	// Observer names a registered observability.Observer. Empty selects "noop".
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		Observer:     "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.WriteTimeout != 0 {
		c.WriteTimeout = source.WriteTimeout
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
