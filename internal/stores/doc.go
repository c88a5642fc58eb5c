// Package stores contains redis-backed persistence used by the root package.
// Keys are namespaced with short prefixes and records use a compact binary
// encoding with a leading version byte.
package stores
