// Package transcode implements the adaptive transcoding scheduler.
//
// It provides:
//   - Submit: non-blocking admission with cache short-circuiting and
//     per-key request coalescing
//   - a bounded pool of workers driving the external encoder, with
//     atomic publication of finished renditions
//   - advisory progress sampling while an encode runs
//   - a janitor evicting renditions idle past a TTL
//
// Failed encodes are terminal; a fresh Submit is required to retry.
package transcode
