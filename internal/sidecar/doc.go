// Package sidecar writes the auxiliary metadata files that accompany a
// downloaded work: XMP packets, info text, JSON dumps, series JSON, ugoira
// frame data and the caption URL dump.
//
// Emitter decides which of them to write from the configuration and the
// URLs the download loop iterated. Every file is written atomically.
package sidecar
