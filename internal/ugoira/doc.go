// Package ugoira reads and writes animated-work bundles and re-encodes them
// into playable formats with ffmpeg.
//
// A ".zip" bundle is the frame archive pixiv serves. A ".ugoira" bundle is
// the same archive with an animation.json manifest added, so it can be
// re-encoded later without fetching the work's metadata again.
package ugoira
