// Package otp implements RFC 6238 time-based one-time passwords for second
// factor enrollment and verification.
//
// # Architecture boundaries
//
// This package handles secret generation, otpauth provisioning URIs, and
// code verification. Secret storage, attempt limiting, and replay tracking
// belong to the caller.
//
// # What this package must NOT do
//
//   - Persist secrets or counters.
//   - Import any other vaultcore package.
package otp
