package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/metrics"
)

// GetRendition looks up the cached rendition for (mediaID, quality).
// A miss returns (nil, nil). A row whose file no longer exists on disk
// is deleted and treated as a miss (self-healing). On a hit the row's
// last access time is refreshed.
func (d *Database) GetRendition(ctx context.Context, mediaID, quality string) (*CachedRendition, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_rendition", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT media_id, quality, file_path, file_size, duration, created_at, last_accessed
	FROM rendition_cache WHERE media_id = ? AND quality = ?
	`

	var (
		r                       CachedRendition
		createdAt, lastAccessed int64
	)

	err = d.db.QueryRowContext(ctx, query, mediaID, quality).Scan(
		&r.MediaID, &r.Quality, &r.FilePath, &r.FileSize, &r.Duration,
		&createdAt, &lastAccessed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Stale row: the file was removed out-of-band. Drop the row so the
	// next submit re-encodes instead of returning a dead path.
	if _, statErr := os.Stat(r.FilePath); statErr != nil {
		logging.Warn("cache row for media=%s quality=%s points at missing file %s, removing", mediaID, quality, r.FilePath)
		metrics.CacheSelfHealsTotal.Inc()
		if _, err = d.db.ExecContext(ctx, `DELETE FROM rendition_cache WHERE media_id = ? AND quality = ?`, mediaID, quality); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if _, err = d.db.ExecContext(ctx, `
		UPDATE rendition_cache SET last_accessed = strftime('%s', 'now')
		WHERE media_id = ? AND quality = ?
	`, mediaID, quality); err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(createdAt, 0)
	r.LastAccessed = time.Unix(lastAccessed, 0)
	return &r, nil
}

// PutRendition upserts the cache row for (mediaID, quality) with fresh
// timestamps. Last writer wins on concurrent puts for the same key.
func (d *Database) PutRendition(ctx context.Context, r *CachedRendition) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("put_rendition", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO rendition_cache (media_id, quality, file_path, file_size, duration, created_at, last_accessed)
	VALUES (?, ?, ?, ?, ?, strftime('%s', 'now'), strftime('%s', 'now'))
	ON CONFLICT(media_id, quality) DO UPDATE SET
		file_path = excluded.file_path,
		file_size = excluded.file_size,
		duration = excluded.duration,
		created_at = strftime('%s', 'now'),
		last_accessed = strftime('%s', 'now')
	`

	_, err = d.db.ExecContext(ctx, query,
		r.MediaID, r.Quality, r.FilePath, r.FileSize, r.Duration,
	)
	return err
}

// DeleteRendition removes the cache row for (mediaID, quality).
func (d *Database) DeleteRendition(ctx context.Context, mediaID, quality string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_rendition", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		DELETE FROM rendition_cache WHERE media_id = ? AND quality = ?
	`, mediaID, quality)
	return err
}

// ExpiredRenditions returns cache rows whose last access is strictly
// before the cutoff, for the janitor to evict.
func (d *Database) ExpiredRenditions(ctx context.Context, cutoff time.Time) ([]CachedRendition, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("expired_renditions", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT media_id, quality, file_path, file_size, duration, created_at, last_accessed
		FROM rendition_cache WHERE last_accessed < ?
	`, cutoff.Unix())
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close expired renditions rows: %v", closeErr)
		}
	}()

	var expired []CachedRendition
	for rows.Next() {
		var (
			r                       CachedRendition
			createdAt, lastAccessed int64
		)
		if err = rows.Scan(&r.MediaID, &r.Quality, &r.FilePath, &r.FileSize, &r.Duration, &createdAt, &lastAccessed); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.LastAccessed = time.Unix(lastAccessed, 0)
		expired = append(expired, r)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return expired, nil
}

// AvailableQualities returns the quality tiers with a live cache row for
// the given media, in insertion order.
func (d *Database) AvailableQualities(ctx context.Context, mediaID string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("available_qualities", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT quality FROM rendition_cache WHERE media_id = ? ORDER BY id
	`, mediaID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close qualities rows: %v", closeErr)
		}
	}()

	var qualities []string
	for rows.Next() {
		var q string
		if err = rows.Scan(&q); err != nil {
			return nil, err
		}
		qualities = append(qualities, q)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return qualities, nil
}
