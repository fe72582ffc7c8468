package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/metrics"
	"watch-transcoder/internal/quality"
)

// progressInterval is how often a running job's advisory progress
// estimate is sampled into the job store.
const progressInterval = 2 * time.Second

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		jobID, ok := s.queue.pop(ctx)
		if !ok {
			return
		}
		metrics.QueueDepth.Set(float64(s.queue.depth()))
		s.process(ctx, jobID)
	}
}

// process executes one job end to end. Database writes use a background
// context so a terminal state is still recorded when the pool context is
// canceled mid-encode.
func (s *Service) process(ctx context.Context, jobID string) {
	job, err := s.db.GetJob(context.Background(), jobID)
	if err != nil {
		logging.Error("worker: load job %s: %v", jobID, err)
		return
	}

	tier := quality.Tier(job.ResolvedQuality)
	key := activeKey(job.MediaID, tier)

	// Deregistration must come last: Submit's coalescing check relies on
	// the key staying active until the cache row and terminal state are
	// durable.
	defer func() {
		s.mu.Lock()
		delete(s.active, key)
		s.mu.Unlock()
	}()

	metrics.JobsInProgress.Inc()
	defer metrics.JobsInProgress.Dec()
	start := time.Now()

	if err := s.db.MarkProcessing(context.Background(), jobID); err != nil {
		logging.Error("worker: mark job %s processing: %v", jobID, err)
		s.fail(jobID, fmt.Sprintf("internal error: %v", err), "failed")
		return
	}

	tmpPath := filepath.Join(s.cfg.ScratchDir, job.ID+".mp4.part")

	encCtx, cancel := context.WithTimeout(ctx, s.cfg.EncodeTimeout)
	defer cancel()

	stopProgress := s.monitorProgress(encCtx, job, start)

	err = s.encoder.Encode(encCtx, EncodeRequest{
		InputPath:  job.InputPath,
		OutputPath: tmpPath,
		Preset:     quality.PresetFor(tier),
	})
	stopProgress()

	if err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("worker: remove partial output %s: %v", tmpPath, rmErr)
		}

		outcome := "failed"
		msg := err.Error()
		if errors.Is(err, ErrEncodeTimeout) {
			outcome = "timeout"
			msg = fmt.Sprintf("encode timed out after %s", s.cfg.EncodeTimeout)
		}
		logging.Error("job %s failed: %s", jobID, msg)
		s.fail(jobID, msg, outcome)
		return
	}

	fi, err := os.Stat(tmpPath)
	if err != nil {
		s.fail(jobID, fmt.Sprintf("encoder produced no output: %v", err), "failed")
		return
	}

	finalPath := filepath.Join(s.cfg.CacheDir, fmt.Sprintf("%s_%s.mp4", job.MediaID, tier))
	// Atomic publish: a partially written file is never visible under
	// the final cache path.
	if err := os.Rename(tmpPath, finalPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("worker: remove partial output %s: %v", tmpPath, rmErr)
		}
		s.fail(jobID, fmt.Sprintf("publish rendition: %v", err), "failed")
		return
	}

	var duration float64
	if out, probeErr := s.prober.Probe(context.Background(), finalPath); probeErr == nil {
		duration = out.Duration
	} else {
		logging.Debug("worker: probe of finished rendition %s failed: %v", finalPath, probeErr)
	}

	rendition := &database.CachedRendition{
		MediaID:  job.MediaID,
		Quality:  string(tier),
		FilePath: finalPath,
		FileSize: fi.Size(),
		Duration: duration,
	}
	if err := s.db.PutRendition(context.Background(), rendition); err != nil {
		s.fail(jobID, fmt.Sprintf("register rendition: %v", err), "failed")
		return
	}

	if err := s.db.MarkCompleted(context.Background(), jobID, finalPath); err != nil {
		logging.Error("worker: mark job %s completed: %v", jobID, err)
		return
	}

	elapsed := time.Since(start)
	metrics.JobsCompletedTotal.WithLabelValues("completed").Inc()
	metrics.JobDuration.Observe(elapsed.Seconds())
	logging.Info("job %s completed: media=%s quality=%s size=%d in %v", jobID, job.MediaID, tier, fi.Size(), elapsed.Round(time.Millisecond))
}

func (s *Service) fail(jobID, message, outcome string) {
	if err := s.db.MarkFailed(context.Background(), jobID, message); err != nil {
		logging.Error("worker: mark job %s failed: %v", jobID, err)
	}
	metrics.JobsCompletedTotal.WithLabelValues(outcome).Inc()
}

// monitorProgress samples an elapsed-time progress estimate into the job
// store while the encode runs. The estimate is monotonically increasing
// and capped below 100; it is advisory for UI feedback only and carries
// no correctness weight. Returns a stop function.
func (s *Service) monitorProgress(ctx context.Context, job *database.TranscodeJob, start time.Time) func() {
	// A fast-preset encode tends to run near realtime, so the source
	// duration doubles as the wall-clock estimate. Unknown durations get
	// a flat guess.
	expected := 120.0
	if info, err := s.prober.Probe(ctx, job.InputPath); err == nil && info.Duration > 0 {
		expected = info.Duration
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pct := time.Since(start).Seconds() / expected * 100
				if pct > 95 {
					pct = 95
				}
				if err := s.db.UpdateProgress(context.Background(), job.ID, pct); err != nil {
					logging.Debug("progress update for job %s: %v", job.ID, err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
