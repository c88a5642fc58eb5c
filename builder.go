package vaultcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/volkpass/vaultcore/internal/limiters"
)

// Builder assembles an [Engine]. Configure with the With* methods and call
// Build exactly once; a Builder is not safe for concurrent use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accountStore    AccountStore
	credentialStore CredentialStore
	recoveryStore   RecoveryStore
	auditSink       AuditSink

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis attaches the redis client used by the second-factor lockout
// limiter and by [NewRedisRecoveryStore] when no custom recovery store is
// provided.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the account verification collaborator. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accountStore = store
	return b
}

// WithCredentialStore sets the credential persistence collaborator. Optional:
// without it the credential and risk operations fail with
// [ErrEngineNotReady].
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentialStore = store
	return b
}

// WithRecoveryStore sets the recovery request collaborator. Optional: when
// absent and a redis client is configured, a redis-backed store is wired;
// with neither, recovery operations fail with [ErrEngineNotReady].
func (b *Builder) WithRecoveryStore(store RecoveryStore) *Builder {
	b.recoveryStore = store
	return b
}

// WithAuditSink sets the destination for audit events. Ignored unless
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, limiter, audit
// dispatcher, and metrics, and returns the ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.accountStore == nil {
		return nil, errors.New("account store required")
	}
	if cfg.SecondFactor.LockoutEnabled && b.redis == nil {
		return nil, errors.New("SecondFactor lockout requires redis client")
	}

	engine := &Engine{
		config:          cfg,
		accountStore:    b.accountStore,
		credentialStore: b.credentialStore,
		recoveryStore:   b.recoveryStore,
	}

	if cfg.SecondFactor.LockoutEnabled {
		engine.verifyLimiter = limiters.NewSecondFactorLimiter(b.redis, limiters.SecondFactorLimiterConfig{
			MaxAttempts: cfg.SecondFactor.MaxAttempts,
			Cooldown:    cfg.SecondFactor.Cooldown,
		})
	}

	if engine.recoveryStore == nil && b.redis != nil {
		engine.recoveryStore = NewRedisRecoveryStore(b.redis, cfg.Recovery.TokenTTL)
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
