package transcode

import (
	"context"
	"os"
	"sync"
	"time"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/metrics"
)

// Janitor evicts renditions that have not been accessed within the TTL.
// It runs on its own schedule, independent of worker activity, and only
// ever touches cache rows; job records are pruned separately and only on
// external request.
type Janitor struct {
	db       *database.Database
	ttl      time.Duration
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a janitor sweeping every interval for renditions
// idle longer than ttl.
func NewJanitor(db *database.Database, ttl, interval time.Duration) *Janitor {
	return &Janitor{
		db:       db,
		ttl:      ttl,
		interval: interval,
	}
}

// Start launches the background sweep loop.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	if j.cancel != nil {
		j.mu.Unlock()
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.mu.Unlock()

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		logging.Info("Cache janitor started: ttl=%v interval=%v", j.ttl, j.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := j.PurgeOlderThan(ctx, j.ttl); err != nil {
					logging.Error("janitor sweep: %v", err)
				}
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if j.cancel != nil {
		j.cancel()
	}
	j.mu.Unlock()

	j.wg.Wait()
}

// PurgeOlderThan evicts every rendition whose last access predates
// now-ttl and returns the eviction count. File deletion is best-effort:
// a failed delete is logged and counted, and the row is removed either
// way so the cache never serves a path it could not clean up. Errors on
// one entry never abort the rest of the sweep.
func (j *Janitor) PurgeOlderThan(ctx context.Context, ttl time.Duration) (int, error) {
	metrics.JanitorSweepsTotal.Inc()

	cutoff := time.Now().Add(-ttl)
	expired, err := j.db.ExpiredRenditions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, r := range expired {
		if err := os.Remove(r.FilePath); err != nil && !os.IsNotExist(err) {
			logging.Warn("janitor: delete rendition file %s: %v", r.FilePath, err)
			metrics.JanitorErrorsTotal.Inc()
		}

		if err := j.db.DeleteRendition(ctx, r.MediaID, r.Quality); err != nil {
			logging.Error("janitor: delete cache row media=%s quality=%s: %v", r.MediaID, r.Quality, err)
			continue
		}

		evicted++
		metrics.JanitorEvictionsTotal.Inc()
		logging.Debug("janitor: evicted media=%s quality=%s (idle since %v)", r.MediaID, r.Quality, r.LastAccessed)
	}

	if evicted > 0 {
		logging.Info("janitor: evicted %d rendition(s) idle longer than %v", evicted, ttl)
	}
	return evicted, nil
}
