// Package preflight provides readiness checks for the filesystem paths,
// binaries and remote site pixivdl depends on.
//
// RunAll is called before a download or re-encode run; a failed check stops
// the run before any work is touched. The CLI "pixivdl status" command uses
// the individual checks to display health.
//
// Checks tied to a feature are skipped when the feature is disabled.
package preflight
