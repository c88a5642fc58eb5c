// Package password implements master password hashing and verification with
// Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports whether a stored hash was produced with
// weaker parameters than the current config, so callers can re-hash on the
// next successful verification.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy lives
// with the caller.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other vaultcore package.
//   - Log plaintext passwords or hash parameters.
package password
