// Package staging owns the per-attempt staging directories used by the
// re-encode workflow and the startup sweep that removes stale ones.
package staging
