// Package handlers implements the HTTP surface of the transcoding
// service: job submission and status polling, rendition lookup and
// streaming, cache purge and job pruning, plus health and version
// endpoints.
package handlers
