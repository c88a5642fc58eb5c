package vaultcore

import "errors"

var (
	// ErrInvalidInput reports an empty or malformed field caught before any
	// collaborator call is made.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailed reports a failed primary login. The cause is
	// deliberately indistinguishable: callers cannot tell an unknown
	// username from a wrong secret.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrSecondFactorRequired is a control signal, not a failure: primary
	// credentials verified but a second factor must be confirmed. It is
	// carried on [LoginResult] and only returned directly by operations
	// that require a fully authenticated session.
	ErrSecondFactorRequired = errors.New("second factor required")
	// ErrSecondFactorInvalid reports a rejected one-time or backup code.
	// The session stays in AwaitingSecondFactor.
	ErrSecondFactorInvalid = errors.New("second factor invalid")
	// ErrVerifyRateLimited reports that the second-factor lockout limiter
	// has tripped for the pending account.
	ErrVerifyRateLimited = errors.New("second factor attempts rate limited")
	// ErrUnauthorized reports a non-admin principal attempting an
	// admin-only operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict reports a lost concurrent mutation: a racing recovery
	// decision, or a collaborator response that resolved after a later
	// state change and was discarded.
	ErrConflict = errors.New("conflicting state transition")
	// ErrExpired reports a recovery request whose token is past its
	// expiry. The request stays pending.
	ErrExpired = errors.New("recovery token expired")
	// ErrStoreUnavailable reports a collaborator transport or persistence
	// failure. Always recoverable by retry; never corrupts session state.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady reports an Engine used before [Builder.Build]
	// wired the dependency the operation needs.
	ErrEngineNotReady = errors.New("engine not initialized")
)
