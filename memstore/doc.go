// Package memstore provides in-memory implementations of the vaultcore
// collaborator interfaces. They are complete enough for examples, tests, and
// single-process deployments, but nothing persists across restarts.
//
// All stores are safe for concurrent use.
package memstore
