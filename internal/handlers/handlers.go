package handlers

import (
	"watch-transcoder/internal/database"
	"watch-transcoder/internal/transcode"
)

// Handlers holds the HTTP handlers for the transcoding service.
type Handlers struct {
	svc     *transcode.Service
	janitor *transcode.Janitor
	db      *database.Database
}

// New creates the handler set.
func New(svc *transcode.Service, janitor *transcode.Janitor, db *database.Database) *Handlers {
	return &Handlers{
		svc:     svc,
		janitor: janitor,
		db:      db,
	}
}
