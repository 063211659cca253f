package runtime

import (
	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "RUNTIME_"

	LamportsPerByteYearConfigEnvName = envConfigPrefix + "LAMPORTS_PER_BYTE_YEAR"
	defaultLamportsPerByteYear       = 3480

	ExemptionThresholdYearsConfigEnvName = envConfigPrefix + "EXEMPTION_THRESHOLD_YEARS"
	defaultExemptionThresholdYears       = 2

	MaxInvokeDepthConfigEnvName = envConfigPrefix + "MAX_INVOKE_DEPTH"
	defaultMaxInvokeDepth       = 4

	VerifySignaturesConfigEnvName = envConfigPrefix + "VERIFY_SIGNATURES"
	defaultVerifySignatures       = true

	SignatureCacheSizeConfigEnvName = envConfigPrefix + "SIGNATURE_CACHE_SIZE"
	defaultSignatureCacheSize       = 100_000
)

type conf struct {
	lamportsPerByteYear     config.Uint64
	exemptionThresholdYears config.Uint64
	maxInvokeDepth          config.Uint64
	verifySignatures        config.Bool
	signatureCacheSize      config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerByteYear:     env.NewUint64Config(LamportsPerByteYearConfigEnvName, defaultLamportsPerByteYear),
			exemptionThresholdYears: env.NewUint64Config(ExemptionThresholdYearsConfigEnvName, defaultExemptionThresholdYears),
			maxInvokeDepth:          env.NewUint64Config(MaxInvokeDepthConfigEnvName, defaultMaxInvokeDepth),
			verifySignatures:        env.NewBoolConfig(VerifySignaturesConfigEnvName, defaultVerifySignatures),
			signatureCacheSize:      env.NewUint64Config(SignatureCacheSizeConfigEnvName, defaultSignatureCacheSize),
		}
	}
}

// ManualConfigs are fixed values for an in-process bank. Zero values fall
// back to the defaults, except for signature verification which is always
// taken as given.
type ManualConfigs struct {
	LamportsPerByteYear     uint64
	ExemptionThresholdYears uint64
	MaxInvokeDepth          uint64
	SkipSignatureChecks     bool
	SignatureCacheSize      uint64
}

// WithManualConfigs returns configuration backed by in memory values
func WithManualConfigs(overrides ManualConfigs) ConfigProvider {
	orDefault := func(v, d uint64) uint64 {
		if v == 0 {
			return d
		}
		return v
	}

	return func() *conf {
		return &conf{
			lamportsPerByteYear:     wrapper.NewUint64Config(memory.NewConfig(orDefault(overrides.LamportsPerByteYear, defaultLamportsPerByteYear)), defaultLamportsPerByteYear),
			exemptionThresholdYears: wrapper.NewUint64Config(memory.NewConfig(orDefault(overrides.ExemptionThresholdYears, defaultExemptionThresholdYears)), defaultExemptionThresholdYears),
			maxInvokeDepth:          wrapper.NewUint64Config(memory.NewConfig(orDefault(overrides.MaxInvokeDepth, defaultMaxInvokeDepth)), defaultMaxInvokeDepth),
			verifySignatures:        wrapper.NewBoolConfig(memory.NewConfig(!overrides.SkipSignatureChecks), defaultVerifySignatures),
			signatureCacheSize:      wrapper.NewUint64Config(memory.NewConfig(orDefault(overrides.SignatureCacheSize, defaultSignatureCacheSize)), defaultSignatureCacheSize),
		}
	}
}
