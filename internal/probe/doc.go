// Package probe extracts media properties (duration, resolution, codecs,
// bitrate) from source files using FFprobe.
//
// Probing is a best-effort collaborator: callers are expected to degrade
// gracefully when it fails rather than abort the surrounding operation.
package probe
