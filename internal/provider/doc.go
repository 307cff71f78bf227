// Package provider fetches work metadata from pixiv.
//
// Listed works come from the AJAX JSON endpoints; unlisted works are read
// from the preload JSON embedded in their artwork page. Failures are
// reported as *FetchError, which carries the raw page when one was received.
package provider
