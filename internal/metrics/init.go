package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"queued", "cache_hit", "coalesced"} {
		JobsSubmittedTotal.WithLabelValues(outcome)
	}

	for _, status := range []string{"completed", "failed", "timeout"} {
		JobsCompletedTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "create_job", "get_job",
		"mark_processing", "update_progress", "mark_completed", "mark_failed",
		"prune_jobs", "get_rendition", "put_rendition", "delete_rendition",
		"expired_renditions", "available_qualities"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
