// Package middleware provides HTTP middleware for request logging and
// Prometheus request metrics.
package middleware
