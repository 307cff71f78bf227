// Package download fetches the media files of an admitted work.
//
// Orchestrator walks a work's candidate URLs, renders and sanitizes a path
// for each one and hands it to a Fetcher. HTTPFetcher is the production
// Fetcher: it streams into a ".pixivdl.part" file, honours the overwrite,
// size-check and backup settings and retries transport failures.
package download
