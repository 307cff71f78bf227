// Package reencode rebuilds the animated outputs of ugoira works already on
// disk.
//
// Workflow.Run scans a directory tree for ".ugoira" and ".zip" bundles and,
// for each work id, stages the existing outputs, tries a local encode from a
// self-describing ".ugoira" bundle and falls back to re-processing the work
// online. Staged files are restored when the attempt fails, and staged files
// that were not regenerated are kept as timestamped backups when
// download.backup_old_file is set. The staging directory is removed on every
// exit path.
package reencode
