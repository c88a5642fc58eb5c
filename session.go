package vaultcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/volkpass/vaultcore/internal/limiters"
)

// SessionController owns the authentication state machine for one client.
//
// Transitions are applied atomically under an internal mutex, and every
// transition that waits on a collaborator is guarded by an epoch check: if a
// later state change (another login, a verification, a logout) completes
// while the call is in flight, the late result is discarded with
// [ErrConflict] instead of being applied over the newer state. Collaborator
// calls run outside the lock, so one slow login never blocks Logout.
type SessionController struct {
	engine *Engine

	mu              sync.Mutex
	epoch           uint64
	phase           Phase
	principal       *Principal
	pendingUsername string
}

// SessionSnapshot is the read-only session view handed to the presentation
// layer.
type SessionSnapshot struct {
	Phase           Phase
	Principal       *Principal
	PendingUsername string
}

// Login verifies primary credentials through the account store. It returns
// either an authenticated principal or a second-factor challenge carrying the
// verified username. Any failure returns the session to anonymous; the error
// never distinguishes an unknown username from a wrong secret.
//
// When register is true the account store creates the account instead of
// verifying an existing one; the session semantics are identical.
func (c *SessionController) Login(ctx context.Context, username, secret string, register bool) (LoginResult, error) {
	if c == nil || c.engine == nil || c.engine.accountStore == nil {
		return LoginResult{}, ErrEngineNotReady
	}
	if strings.TrimSpace(username) == "" || secret == "" {
		return LoginResult{}, ErrInvalidInput
	}

	c.mu.Lock()
	if c.phase != PhaseAnonymous {
		c.mu.Unlock()
		return LoginResult{}, ErrConflict
	}
	c.phase = PhaseAuthenticating
	c.epoch++
	start := c.epoch
	c.mu.Unlock()

	verification, err := c.engine.accountStore.VerifyCredentials(ctx, username, secret, register)

	c.mu.Lock()
	if c.epoch != start {
		c.mu.Unlock()
		c.discardStale(ctx, username)
		return LoginResult{}, ErrConflict
	}

	if err != nil {
		c.phase = PhaseAnonymous
		c.principal = nil
		c.pendingUsername = ""
		c.epoch++
		c.mu.Unlock()

		mapped := mapVerifyCredentialsError(err)
		c.engine.metricInc(MetricLoginFailure)
		c.engine.emitAudit(ctx, auditEventLoginFailure, false, "", username, mapped, func() map[string]string {
			return map[string]string{
				"register": fmt.Sprintf("%t", register),
			}
		})
		return LoginResult{}, mapped
	}

	if verification.SecondFactorRequired {
		pending := verification.Username
		if pending == "" {
			pending = username
		}
		c.phase = PhaseAwaitingSecondFactor
		c.pendingUsername = pending
		c.principal = nil
		c.epoch++
		c.mu.Unlock()

		c.engine.metricInc(MetricSecondFactorRequired)
		c.engine.emitAudit(ctx, auditEventSecondFactorRequired, true, "", pending, nil, nil)
		return LoginResult{
			SecondFactorRequired: true,
			Username:             pending,
		}, nil
	}

	principal := verification.Principal
	c.phase = PhaseAuthenticated
	c.principal = &principal
	c.pendingUsername = ""
	c.epoch++
	c.mu.Unlock()

	c.engine.metricInc(MetricLoginSuccess)
	c.engine.emitAudit(ctx, auditEventLoginSuccess, true, principal.UserID, principal.Username, nil, nil)
	return LoginResult{Principal: principal}, nil
}

// VerifySecondFactor confirms a fixed-length numeric one-time code. Valid
// only in AwaitingSecondFactor. On failure the session stays in the challenge
// phase with the pending username intact, and the failure is reported to the
// lockout collaborator when one is configured.
func (c *SessionController) VerifySecondFactor(ctx context.Context, code string) (Principal, error) {
	return c.confirmSecondFactor(ctx, code, false)
}

// VerifyBackupCode confirms a single-use backup code. The account store marks
// a successfully consumed code permanently invalid, so replaying the same
// code fails with [ErrSecondFactorInvalid].
func (c *SessionController) VerifyBackupCode(ctx context.Context, code string) (Principal, error) {
	return c.confirmSecondFactor(ctx, code, true)
}

func (c *SessionController) confirmSecondFactor(ctx context.Context, code string, backup bool) (Principal, error) {
	if c == nil || c.engine == nil || c.engine.accountStore == nil {
		return Principal{}, ErrEngineNotReady
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Principal{}, ErrInvalidInput
	}
	if !backup {
		// Malformed codes are rejected locally; no collaborator call,
		// no state change.
		if len(code) != c.engine.config.SecondFactor.CodeDigits || !isNumericString(code) {
			return Principal{}, ErrSecondFactorInvalid
		}
	}

	c.mu.Lock()
	if c.phase != PhaseAwaitingSecondFactor {
		c.mu.Unlock()
		return Principal{}, ErrConflict
	}
	username := c.pendingUsername
	start := c.epoch
	c.mu.Unlock()

	if limiter := c.engine.verifyLimiter; limiter != nil {
		if err := limiter.Check(ctx, username); err != nil {
			return Principal{}, c.secondFactorLimiterError(ctx, username, err)
		}
	}

	var principal Principal
	var err error
	if backup {
		principal, err = c.engine.accountStore.VerifyBackupCode(ctx, username, code)
	} else {
		principal, err = c.engine.accountStore.VerifyCode(ctx, username, code)
	}

	c.mu.Lock()
	if c.epoch != start || c.phase != PhaseAwaitingSecondFactor {
		c.mu.Unlock()
		c.discardStale(ctx, username)
		return Principal{}, ErrConflict
	}

	if err != nil {
		// State unchanged: the caller decides whether to retry.
		c.mu.Unlock()
		return Principal{}, c.secondFactorFailure(ctx, username, backup, err)
	}

	c.phase = PhaseAuthenticated
	c.principal = &principal
	c.pendingUsername = ""
	c.epoch++
	c.mu.Unlock()

	if limiter := c.engine.verifyLimiter; limiter != nil {
		if lerr := limiter.Reset(ctx, username); lerr != nil {
			c.engine.warn("vaultcore: second factor limiter reset failed")
		}
	}

	if backup {
		c.engine.metricInc(MetricBackupCodeUsed)
		c.engine.emitAudit(ctx, auditEventBackupCodeUsed, true, principal.UserID, principal.Username, nil, nil)
	} else {
		c.engine.metricInc(MetricSecondFactorSuccess)
		c.engine.emitAudit(ctx, auditEventSecondFactorSuccess, true, principal.UserID, principal.Username, nil, nil)
	}
	return principal, nil
}

func (c *SessionController) secondFactorFailure(ctx context.Context, username string, backup bool, cause error) error {
	mapped := mapSecondFactorError(cause)

	if errors.Is(mapped, ErrSecondFactorInvalid) {
		if limiter := c.engine.verifyLimiter; limiter != nil {
			if lerr := limiter.RecordFailure(ctx, username); lerr != nil {
				if errors.Is(lerr, limiters.ErrSecondFactorRateLimited) {
					return c.secondFactorLimiterError(ctx, username, lerr)
				}
				c.engine.warn("vaultcore: second factor limiter unavailable")
			}
		}
	}

	if backup {
		c.engine.metricInc(MetricBackupCodeFailed)
		c.engine.emitAudit(ctx, auditEventBackupCodeFailed, false, "", username, mapped, nil)
	} else {
		c.engine.metricInc(MetricSecondFactorFailure)
		c.engine.emitAudit(ctx, auditEventSecondFactorFailure, false, "", username, mapped, nil)
	}
	return mapped
}

func (c *SessionController) secondFactorLimiterError(ctx context.Context, username string, err error) error {
	if errors.Is(err, limiters.ErrSecondFactorRateLimited) {
		c.engine.metricInc(MetricSecondFactorRateLimited)
		c.engine.emitAudit(ctx, auditEventSecondFactorRateLimited, false, "", username, ErrVerifyRateLimited, nil)
		return ErrVerifyRateLimited
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ReportSecondFactorFailure records one verification failure against the
// pending account on the lockout collaborator. It is the hook for callers
// that observe repeated failures outside this controller (e.g. a second
// device sharing the challenge). Returns [ErrVerifyRateLimited] once the
// threshold is crossed, and is a no-op without a configured limiter.
func (c *SessionController) ReportSecondFactorFailure(ctx context.Context) error {
	if c == nil || c.engine == nil {
		return ErrEngineNotReady
	}
	limiter := c.engine.verifyLimiter
	if limiter == nil {
		return nil
	}

	c.mu.Lock()
	username := c.pendingUsername
	phase := c.phase
	c.mu.Unlock()

	if phase != PhaseAwaitingSecondFactor {
		return ErrConflict
	}
	if err := limiter.RecordFailure(ctx, username); err != nil {
		return c.secondFactorLimiterError(ctx, username, err)
	}
	return nil
}

// Logout clears all session attributes unconditionally and returns the
// session to anonymous. Calling it while already anonymous is a no-op
// success. The account store is notified best-effort after local state is
// cleared; a notification failure surfaces as [ErrStoreUnavailable] but the
// session is anonymous regardless.
func (c *SessionController) Logout(ctx context.Context) error {
	if c == nil {
		return nil
	}

	c.mu.Lock()
	if c.phase == PhaseAnonymous && c.principal == nil && c.pendingUsername == "" {
		c.mu.Unlock()
		return nil
	}
	var principal *Principal
	if c.principal != nil {
		copied := *c.principal
		principal = &copied
	}
	c.phase = PhaseAnonymous
	c.principal = nil
	c.pendingUsername = ""
	c.epoch++
	c.mu.Unlock()

	if c.engine == nil {
		return nil
	}

	c.engine.metricInc(MetricLogout)
	if principal != nil {
		c.engine.emitAudit(ctx, auditEventLogout, true, principal.UserID, principal.Username, nil, nil)
		if c.engine.accountStore != nil {
			if err := c.engine.accountStore.Logout(ctx, *principal); err != nil {
				c.engine.warn("vaultcore: logout notification failed")
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
	} else {
		c.engine.emitAudit(ctx, auditEventLogout, true, "", "", nil, nil)
	}
	return nil
}

// Phase returns the current authentication phase.
func (c *SessionController) Phase() Phase {
	if c == nil {
		return PhaseAnonymous
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Principal returns the authenticated identity and whether one is attached.
func (c *SessionController) Principal() (Principal, bool) {
	if c == nil {
		return Principal{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.principal == nil {
		return Principal{}, false
	}
	return *c.principal, true
}

// PendingUsername returns the verified username held during the
// second-factor challenge, or "" outside that phase.
func (c *SessionController) PendingUsername() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingUsername
}

// IsAdmin reports whether an authenticated admin principal is attached.
func (c *SessionController) IsAdmin() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase == PhaseAuthenticated && c.principal != nil && c.principal.Admin
}

// Snapshot returns a consistent read-only view for rendering.
func (c *SessionController) Snapshot() SessionSnapshot {
	if c == nil {
		return SessionSnapshot{Phase: PhaseAnonymous}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := SessionSnapshot{
		Phase:           c.phase,
		PendingUsername: c.pendingUsername,
	}
	if c.principal != nil {
		copied := *c.principal
		snap.Principal = &copied
	}
	return snap
}

func (c *SessionController) discardStale(ctx context.Context, username string) {
	c.engine.metricInc(MetricStaleResultDiscarded)
	c.engine.emitAudit(ctx, auditEventStaleResultDiscarded, false, "", username, ErrConflict, nil)
}

func mapVerifyCredentialsError(err error) error {
	switch {
	case errors.Is(err, ErrAuthenticationFailed),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrConflict):
		return err
	case errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func mapSecondFactorError(err error) error {
	switch {
	case errors.Is(err, ErrSecondFactorInvalid):
		return err
	case errors.Is(err, ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
