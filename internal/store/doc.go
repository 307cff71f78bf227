// Package store persists download bookkeeping in SQLite.
//
// The schema mirrors the long-standing pixiv downloader layout: master
// member, image, manga page, tag, image-to-tag and tag translation tables.
// Every write is an independent statement; the pipeline tolerates individual
// failures and never wraps a reconciliation in a transaction. Migrations are
// embedded and applied on Open.
package store
