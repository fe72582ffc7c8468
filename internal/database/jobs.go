package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrJobNotFound is returned when a status query names an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// CreateJob inserts a job record. All fields are taken from the given
// job, including its status, so the scheduler can persist synthesized
// completed jobs for cache hits in one call.
func (d *Database) CreateJob(ctx context.Context, job *TranscodeJob) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_job", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO transcode_jobs
		(id, media_id, input_path, requested_quality, resolved_quality,
		 status, progress, error_message, output_path, created_at, started_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		job.ID,
		job.MediaID,
		job.InputPath,
		job.RequestedQuality,
		job.ResolvedQuality,
		string(job.Status),
		job.Progress,
		nullString(job.ErrorMessage),
		nullString(job.OutputPath),
		job.CreatedAt.Unix(),
		nullUnix(job.StartedAt),
		nullUnix(job.CompletedAt),
	)
	return err
}

// GetJob retrieves a job by id. Returns ErrJobNotFound for unknown ids.
func (d *Database) GetJob(ctx context.Context, id string) (*TranscodeJob, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_job", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT id, media_id, input_path, requested_quality, resolved_quality,
	       status, progress, error_message, output_path, created_at, started_at, completed_at
	FROM transcode_jobs WHERE id = ?
	`

	var (
		job                    TranscodeJob
		status                 string
		errMsg, outputPath     sql.NullString
		createdAt              int64
		startedAt, completedAt sql.NullInt64
	)

	err = d.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.MediaID, &job.InputPath, &job.RequestedQuality, &job.ResolvedQuality,
		&status, &job.Progress, &errMsg, &outputPath, &createdAt, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrJobNotFound
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	job.Status = JobStatus(status)
	job.ErrorMessage = errMsg.String
	job.OutputPath = outputPath.String
	job.CreatedAt = time.Unix(createdAt, 0)
	job.StartedAt = unixPtr(startedAt)
	job.CompletedAt = unixPtr(completedAt)

	return &job, nil
}

// MarkProcessing transitions a pending job to processing and records the
// start time. A job already past pending is left untouched.
func (d *Database) MarkProcessing(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_processing", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs
		SET status = 'processing', started_at = strftime('%s', 'now')
		WHERE id = ? AND status = 'pending'
	`, id)
	return err
}

// UpdateProgress records an advisory progress estimate for a processing
// job. Stored progress never decreases and is clamped below 100; only
// the completed transition sets it to 100.
func (d *Database) UpdateProgress(ctx context.Context, id string, progress float64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_progress", start, err) }()

	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs
		SET progress = MAX(progress, ?)
		WHERE id = ? AND status = 'processing'
	`, progress, id)
	return err
}

// MarkCompleted transitions a job to its completed terminal state.
// Terminal rows are never modified.
func (d *Database) MarkCompleted(ctx context.Context, id, outputPath string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_completed", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs
		SET status = 'completed', progress = 100, output_path = ?,
		    completed_at = strftime('%s', 'now')
		WHERE id = ? AND status IN ('pending', 'processing')
	`, outputPath, id)
	return err
}

// MarkFailed transitions a job to its failed terminal state with a
// diagnostic message. Terminal rows are never modified.
func (d *Database) MarkFailed(ctx context.Context, id, message string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_failed", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		UPDATE transcode_jobs
		SET status = 'failed', error_message = ?,
		    completed_at = strftime('%s', 'now')
		WHERE id = ? AND status IN ('pending', 'processing')
	`, message, id)
	return err
}

// FailOrphanedJobs fails any pending or processing jobs left over from a
// previous run. Called once at startup, before workers start.
func (d *Database) FailOrphanedJobs(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("mark_failed", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, `
		UPDATE transcode_jobs
		SET status = 'failed', error_message = 'interrupted by service restart',
		    completed_at = strftime('%s', 'now')
		WHERE status IN ('pending', 'processing')
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PruneJobs deletes terminal job records created before the cutoff.
// Pruning is only ever triggered by external callers.
func (d *Database) PruneJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("prune_jobs", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-olderThan).Unix()

	result, err := d.db.ExecContext(ctx, `
		DELETE FROM transcode_jobs
		WHERE status IN ('completed', 'failed') AND created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
