// Package sinks implements concrete progress consumers: Prometheus collectors
// for run health, the run-store writer behind the ops API, and structured
// logging. Each sink satisfies the progress.Sink interface and is safe for
// repeated Consume/Close cycles.
package sinks
