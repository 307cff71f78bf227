// Package pipeline runs the per-work acquisition flow: the database
// short-circuit, metadata fetch, filtering, the download loop, side-car
// emission, ugoira encoding and persistence.
//
// Processor.Process returns exactly one artwork.Outcome per call. Business
// skips are outcomes with a nil error; only interrupts and unexpected faults
// return an error. ProcessSeries walks a manga series page by page and Wait
// applies the fixed inter-work delay.
//
// Everything a run shares between works (blacklists, the series set, the
// error log) travels in Capabilities, which the caller owns.
package pipeline
