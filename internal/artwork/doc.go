// Package artwork defines the work record flowing through the acquisition
// pipeline together with the processing outcome enum and the manga page
// bookkeeping tuple.
//
// A Work is produced by the metadata provider for one processing call and
// owned by that call. Only its tag list is mutated (by tag suppression);
// everything else is read-only once fetched.
package artwork
