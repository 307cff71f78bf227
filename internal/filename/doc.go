// Package filename renders output paths from %token% templates and sanitizes
// them into a target directory.
//
// Templates use '/' to introduce directories. Token values never introduce
// directories of their own: separators inside titles or names are replaced.
package filename
