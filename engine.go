package vaultcore

import (
	"log"

	"github.com/volkpass/vaultcore/internal/limiters"
)

// Engine owns the vault security core: the collaborator stores, the
// second-factor lockout limiter, audit dispatch, and metrics. Construct via
// [Builder.Build]; an Engine is immutable and safe for concurrent use
// afterwards.
type Engine struct {
	config          Config
	accountStore    AccountStore
	credentialStore CredentialStore
	recoveryStore   RecoveryStore
	verifyLimiter   *limiters.SecondFactorLimiter
	audit           *auditDispatcher
	metrics         *Metrics
}

// NewSession creates an independent anonymous [SessionController] for one
// client. Callers hold and pass the controller explicitly; the engine keeps
// no registry of live sessions.
func (e *Engine) NewSession() *SessionController {
	return &SessionController{
		engine: e,
		phase:  PhaseAnonymous,
	}
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close drains and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	e.audit.Close()
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string) {
	if e == nil || e.config.Security.SilenceWarnings {
		return
	}
	log.Println(msg)
}
