// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp work IDs, stage names, and session
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep fault messages
//     uniform and let callers classify failures with errors.Is.
//   - ErrorCode, which maps a fault onto the numeric code exposed to callers
//     that track the last error of a run.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, interrupts) stays uniform across the pipeline.
package services
