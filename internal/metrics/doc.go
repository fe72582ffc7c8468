// Package metrics declares the Prometheus collectors exported by the
// transcoding service: HTTP request metrics, database query metrics,
// transcode job lifecycle metrics, rendition cache counters and janitor
// sweep counters.
//
// Collectors are registered with the default registry via promauto at
// package init time. InitializeMetrics pre-populates known label
// combinations so dashboards see every series from the first scrape.
package metrics
