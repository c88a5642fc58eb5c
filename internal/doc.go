// Package internal holds small shared helpers for the vaultcore packages.
package internal
