package vaultcore

import (
	"errors"
	"time"
)

// Config groups all engine settings. Configure once, pass to
// [Builder.WithConfig], and treat as immutable afterwards; Build clones it.
type Config struct {
	SecondFactor SecondFactorConfig
	Generator    GeneratorConfig
	Recovery     RecoveryConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
	Security     SecurityConfig
}

/*
====================================
SECOND FACTOR CONFIG
====================================
*/

// SecondFactorConfig controls one-time code validation and the redis-backed
// failure lockout for the MFA challenge phase.
type SecondFactorConfig struct {
	// CodeDigits is the fixed length of a one-time numeric code.
	CodeDigits int

	// LockoutEnabled turns on the redis failure limiter. Requires a redis
	// client on the builder.
	LockoutEnabled bool
	MaxAttempts    int
	Cooldown       time.Duration
}

/*
====================================
GENERATOR CONFIG
====================================
*/

// GeneratorConfig holds defaults for password generation. The hard length
// bounds (8 to 32) are not configurable.
type GeneratorConfig struct {
	DefaultLength int
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig controls the recovery request workflow.
type RecoveryConfig struct {
	// TokenTTL is the default validity window applied when a request is
	// submitted without an explicit expiry.
	TokenTTL time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int

	// DropIfFull drops events instead of blocking the caller when the
	// buffer is saturated. Dropped events are counted.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds cross-cutting hardening knobs.
type SecurityConfig struct {
	// SilenceWarnings suppresses non-fatal warnings written to the
	// standard logger (e.g. a best-effort logout notification failing).
	SilenceWarnings bool
}

// DefaultConfig returns the baseline configuration the builder starts from.
// Adjust fields and pass the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		SecondFactor: SecondFactorConfig{
			CodeDigits:  6,
			MaxAttempts: 5,
			Cooldown:    time.Minute,
		},
		Generator: GeneratorConfig{
			DefaultLength: 16,
		},
		Recovery: RecoveryConfig{
			TokenTTL: 24 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

// Validate checks the configuration for internally inconsistent or unsafe
// values. Build calls it; callers normally never need to.
func (c Config) Validate() error {
	if c.SecondFactor.CodeDigits < 4 || c.SecondFactor.CodeDigits > 10 {
		return errors.New("SecondFactor CodeDigits must be between 4 and 10")
	}
	if c.SecondFactor.LockoutEnabled {
		if c.SecondFactor.MaxAttempts <= 0 {
			return errors.New("SecondFactor MaxAttempts must be positive when lockout is enabled")
		}
		if c.SecondFactor.Cooldown <= 0 {
			return errors.New("SecondFactor Cooldown must be positive when lockout is enabled")
		}
	}
	if c.Generator.DefaultLength < MinGeneratedLength || c.Generator.DefaultLength > MaxGeneratedLength {
		return errors.New("Generator DefaultLength outside the supported 8-32 range")
	}
	if c.Recovery.TokenTTL <= 0 {
		return errors.New("Recovery TokenTTL must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	// All fields are value types today; the clone exists so adding
	// reference-typed settings later cannot alias builder state.
	return cfg
}
