// Package memory provides a settable config for tests and manual overrides.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/code-payments/code-escrow/pkg/config"
)

var errInduced = errors.New("memory config: induced error")

// Config holds a single value in memory. A nil value reads as
// config.ErrNoValue.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	induced  bool
	shutdown bool
}

func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.induced:
		return nil, errInduced
	case c.value == nil:
		return nil, config.ErrNoValue
	default:
		return c.value, nil
	}
}

func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// ClearValue is SetValue(nil).
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// InduceErrors makes Get fail until StopInducingErrors is called.
func (c *Config) InduceErrors() {
	c.mu.Lock()
	c.induced = true
	c.mu.Unlock()
}

func (c *Config) StopInducingErrors() {
	c.mu.Lock()
	c.induced = false
	c.mu.Unlock()
}
