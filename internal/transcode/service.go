package transcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/logging"
	"watch-transcoder/internal/metrics"
	"watch-transcoder/internal/probe"
	"watch-transcoder/internal/quality"
	"watch-transcoder/internal/workers"
)

// Config holds the scheduler and worker settings.
type Config struct {
	// Workers is the number of concurrent encode slots (K).
	Workers int

	// EncodeTimeout is the maximum wall-clock duration of one encode
	// process before it is forcibly terminated.
	EncodeTimeout time.Duration

	// ScratchDir receives in-progress encoder output. It must live on
	// the same filesystem as CacheDir so publishing a rendition is a
	// single atomic rename.
	ScratchDir string

	// CacheDir holds completed renditions.
	CacheDir string
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = workers.ForEncode()
	}
	if c.EncodeTimeout <= 0 {
		c.EncodeTimeout = time.Hour
	}
}

// Service is the transcode scheduler: it coalesces duplicate requests,
// serves cache hits without new work, and feeds a bounded pool of encode
// workers from a FIFO queue.
type Service struct {
	db      *database.Database
	prober  probe.Prober
	encoder Encoder
	cfg     Config

	// mu serializes the coalescing check in Submit against slot release
	// in workers. A worker deregisters a key only after the rendition
	// row and terminal job state are durably written, so a submitter
	// holding mu always observes either the active job or the cache hit.
	mu     sync.Mutex
	active map[string]string // (mediaID|tier) -> jobID

	queue  *fifo
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the scheduler. Zero config fields get defaults; directories
// must already exist.
func New(db *database.Database, prober probe.Prober, encoder Encoder, cfg Config) *Service {
	cfg.setDefaults()
	return &Service{
		db:      db,
		prober:  prober,
		encoder: encoder,
		cfg:     cfg,
		active:  make(map[string]string),
		queue:   newFIFO(),
	}
}

// Start launches the encode worker pool. The context bounds the workers'
// lifetime; canceling it (or calling Stop) drains them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("transcode service already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	logging.Info("Transcode service started with %d worker slots", s.cfg.Workers)
	return nil
}

// Stop shuts down the worker pool and waits for in-flight encodes to
// terminate.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func activeKey(mediaID string, tier quality.Tier) string {
	return mediaID + "|" + string(tier)
}

// Submit schedules a transcode of inputPath to the requested quality and
// returns a job id without blocking. The returned id references, in
// order of preference: a synthesized completed job when the rendition is
// already cached, the active job for the same (media, resolved tier)
// key, or a freshly enqueued pending job.
//
// An unknown quality fails synchronously with quality.ErrInvalidQuality.
// Probe failures degrade to the requested tier.
func (s *Service) Submit(ctx context.Context, mediaID, inputPath, requestedQuality string) (string, error) {
	requested, err := quality.Parse(requestedQuality)
	if err != nil {
		return "", err
	}

	info, probeErr := s.prober.Probe(ctx, inputPath)
	if probeErr != nil {
		logging.Warn("probe failed for %s, resolving to requested tier %s: %v", inputPath, requested, probeErr)
		info = nil
	}
	resolved := quality.Resolve(info, requested)

	// Everything below runs under mu: the active-set check, the cache
	// lookup and job registration must not interleave with a worker
	// finishing the same key.
	s.mu.Lock()
	defer s.mu.Unlock()

	key := activeKey(mediaID, resolved)
	if id, ok := s.active[key]; ok {
		metrics.JobsSubmittedTotal.WithLabelValues("coalesced").Inc()
		logging.Debug("coalesced submit for media=%s quality=%s onto job %s", mediaID, resolved, id)
		return id, nil
	}

	cached, err := s.db.GetRendition(ctx, mediaID, string(resolved))
	if err != nil {
		return "", fmt.Errorf("cache lookup: %w", err)
	}
	if cached != nil {
		metrics.CacheHitsTotal.Inc()
		metrics.JobsSubmittedTotal.WithLabelValues("cache_hit").Inc()
		now := time.Now()
		job := &database.TranscodeJob{
			ID:               uuid.NewString(),
			MediaID:          mediaID,
			InputPath:        inputPath,
			RequestedQuality: string(requested),
			ResolvedQuality:  string(resolved),
			Status:           database.JobCompleted,
			Progress:         100,
			OutputPath:       cached.FilePath,
			CreatedAt:        now,
			CompletedAt:      &now,
		}
		if err := s.db.CreateJob(ctx, job); err != nil {
			return "", fmt.Errorf("record cache hit: %w", err)
		}
		return job.ID, nil
	}
	metrics.CacheMissesTotal.Inc()

	job := &database.TranscodeJob{
		ID:               uuid.NewString(),
		MediaID:          mediaID,
		InputPath:        inputPath,
		RequestedQuality: string(requested),
		ResolvedQuality:  string(resolved),
		Status:           database.JobPending,
		CreatedAt:        time.Now(),
	}
	if err := s.db.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	s.active[key] = job.ID
	s.queue.push(job.ID)
	metrics.QueueDepth.Set(float64(s.queue.depth()))
	metrics.JobsSubmittedTotal.WithLabelValues("queued").Inc()

	logging.Info("queued transcode job %s: media=%s %s -> %s", job.ID, mediaID, requested, resolved)
	return job.ID, nil
}

// Status returns the current job snapshot, or database.ErrJobNotFound.
func (s *Service) Status(ctx context.Context, jobID string) (*database.TranscodeJob, error) {
	return s.db.GetJob(ctx, jobID)
}

// CachedPath returns the on-disk path of the cached rendition for
// (mediaID, quality), or (nil, nil) when no live rendition exists. The
// lookup refreshes the rendition's last access time.
func (s *Service) CachedPath(ctx context.Context, mediaID, qualityStr string) (*database.CachedRendition, error) {
	tier, err := quality.Parse(qualityStr)
	if err != nil {
		return nil, err
	}
	return s.db.GetRendition(ctx, mediaID, string(tier))
}

// AvailableQualities lists the tiers with a cached rendition for the
// media.
func (s *Service) AvailableQualities(ctx context.Context, mediaID string) ([]string, error) {
	return s.db.AvailableQualities(ctx, mediaID)
}
