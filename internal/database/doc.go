// Package database provides SQLite persistence for the transcoding
// service.
//
// It stores two kinds of rows:
//   - transcode job lifecycle records (pending → processing →
//     completed/failed), immutable once terminal
//   - rendition cache entries keyed by (media, quality), self-healing
//     when the underlying file disappears
//
// The database uses WAL mode so worker status updates and caller status
// polls can proceed concurrently.
package database
