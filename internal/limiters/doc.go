// Package limiters provides redis-backed rate limiters for the root package.
//
// # Limiters
//
//   - [SecondFactorLimiter]: per-account failure throttle for second
//     factor verification attempts.
//
// Thresholds come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import vaultcore or any sibling internal package.
//   - Make policy decisions beyond counting; callers decide consequences.
package limiters
