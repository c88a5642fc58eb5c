// Package vaultcore is the security core of a personal credential vault: the
// session/authentication state machine (including TOTP and single-use backup
// code verification), vault-wide credential risk analysis, secure password
// generation, and the admin-mediated account recovery workflow.
//
// The package is a library boundary only. It owns no wire format and no UI:
// persistence of accounts, credential records, and recovery requests is
// delegated to the [AccountStore], [CredentialStore], and [RecoveryStore]
// collaborator interfaces, and the presentation layer consumes the values this
// package produces (session snapshots, risk snapshots, generated passwords,
// recovery request lists) purely for rendering.
//
// # Architecture boundaries
//
// vaultcore is the public surface. It exposes [Engine], [Builder], [Config],
// [SessionController], and value types (RiskSnapshot, GeneratedPassword,
// RecoveryRequest, etc.). Internal coordination (failure lockout counters,
// the redis recovery record encoding, audit dispatch) lives under internal/
// and is never exported. The password, otp, and memstore subpackages are
// reference building blocks for collaborator implementations.
//
// # Concurrency contract
//
// Engine methods are safe for concurrent use after [Builder.Build]. A
// [SessionController] models one client: its transitions are applied
// atomically and guarded against stale collaborator responses, so a result
// that resolves after a later state change is discarded rather than applied.
// Risk scoring and password generation are pure and fully parallel.
package vaultcore
