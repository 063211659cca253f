package client

import (
	"time"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "ESCROW_CLIENT_"

	MaxAttemptsConfigEnvName = envConfigPrefix + "MAX_ATTEMPTS"
	defaultMaxAttempts       = 5

	BaseBackoffConfigEnvName = envConfigPrefix + "BASE_BACKOFF"
	defaultBaseBackoff       = 50 * time.Millisecond

	MaxBackoffConfigEnvName = envConfigPrefix + "MAX_BACKOFF"
	defaultMaxBackoff       = time.Second

	// Submissions per second per fee payer. Zero disables the limit.
	PayerRateLimitConfigEnvName = envConfigPrefix + "PAYER_RATE_LIMIT"
	defaultPayerRateLimit       = 0
)

type conf struct {
	maxAttempts config.Uint64
	baseBackoff config.Duration
	maxBackoff  config.Duration

	payerRateLimit config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			maxAttempts: env.NewUint64Config(MaxAttemptsConfigEnvName, defaultMaxAttempts),
			baseBackoff: env.NewDurationConfig(BaseBackoffConfigEnvName, defaultBaseBackoff),
			maxBackoff:  env.NewDurationConfig(MaxBackoffConfigEnvName, defaultMaxBackoff),

			payerRateLimit: env.NewUint64Config(PayerRateLimitConfigEnvName, defaultPayerRateLimit),
		}
	}
}

type ManualConfigs struct {
	MaxAttempts uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	PayerRateLimit uint64
}

// WithManualConfigs returns configuration backed by in memory values. Zero
// values fall back to the defaults.
func WithManualConfigs(overrides ManualConfigs) ConfigProvider {
	return func() *conf {
		c := &conf{
			maxAttempts: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxAttempts)), defaultMaxAttempts),
			baseBackoff: wrapper.NewDurationConfig(memory.NewConfig(defaultBaseBackoff), defaultBaseBackoff),
			maxBackoff:  wrapper.NewDurationConfig(memory.NewConfig(defaultMaxBackoff), defaultMaxBackoff),

			payerRateLimit: wrapper.NewUint64Config(memory.NewConfig(overrides.PayerRateLimit), defaultPayerRateLimit),
		}

		if overrides.MaxAttempts > 0 {
			c.maxAttempts = wrapper.NewUint64Config(memory.NewConfig(overrides.MaxAttempts), defaultMaxAttempts)
		}
		if overrides.BaseBackoff > 0 {
			c.baseBackoff = wrapper.NewDurationConfig(memory.NewConfig(overrides.BaseBackoff), defaultBaseBackoff)
		}
		if overrides.MaxBackoff > 0 {
			c.maxBackoff = wrapper.NewDurationConfig(memory.NewConfig(overrides.MaxBackoff), defaultMaxBackoff)
		}

		return c
	}
}
