// Package main hosts the pixivdl CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration, takes the run lock,
// builds the per-work pipeline, and reports outcomes. Downloads, series
// walks and ugoira re-encodes run in the foreground; "db", "config" and
// "status" are read-only helpers.
//
// Keep this package lean: behaviour belongs in the internal packages, and
// commands here only translate flags into pipeline requests.
package main
