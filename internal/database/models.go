package database

import "time"

// JobStatus is the lifecycle state of a transcode job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. Terminal jobs are
// immutable.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// TranscodeJob is the durable record of one transcode request.
type TranscodeJob struct {
	ID               string     `json:"id"`
	MediaID          string     `json:"mediaId"`
	InputPath        string     `json:"inputPath"`
	RequestedQuality string     `json:"requestedQuality"`
	ResolvedQuality  string     `json:"resolvedQuality"`
	Status           JobStatus  `json:"status"`
	Progress         float64    `json:"progress"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
	OutputPath       string     `json:"outputPath,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// CachedRendition is one quality-specific output registered in the
// rendition cache.
type CachedRendition struct {
	MediaID      string    `json:"mediaId"`
	Quality      string    `json:"quality"`
	FilePath     string    `json:"filePath"`
	FileSize     int64     `json:"fileSize"`
	Duration     float64   `json:"duration"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}
