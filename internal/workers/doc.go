// Package workers provides sizing heuristics for the encode worker pool
// based on the CPUs available to the process.
package workers
