// Package filter decides whether a fetched work is admitted for download.
//
// Evaluate is a pure function over the work, the configured Policy, the
// caller-owned Blacklists and per-call Options. Checks run in a fixed order
// and the first disqualifying check determines the reported reason. Tag
// suppression is applied separately after admission.
package filter
