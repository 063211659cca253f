// Package env provides configs backed by environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

// variable reads its environment variable on every Get. Values are returned
// as raw bytes for the typed wrappers to parse.
type variable struct {
	key      string
	shutdown atomic.Bool
}

// NewConfig returns a config for the environment variable key, upper cased.
// Unset and empty variables are reported as config.ErrNoValue.
func NewConfig(key string) config.Config {
	return &variable{
		key: strings.ToUpper(key),
	}
}

func (v *variable) Get(_ context.Context) (interface{}, error) {
	if v.shutdown.Load() {
		return nil, config.ErrShutdown
	}

	val, ok := os.LookupEnv(v.key)
	if !ok || len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

func (v *variable) Shutdown() {
	v.shutdown.Store(true)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
