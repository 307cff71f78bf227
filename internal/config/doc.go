// Package config loads, normalizes, and validates pixivdl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PIXIVDL_COOKIE. The Config type centralizes every knob the pipeline and CLI
// need: filter rules, filename templates, side-car toggles, ugoira codecs, and
// bookkeeping switches are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical tag locales, and clear validation errors. The
// pipeline only reads a loaded Config; it never mutates it.
package config
