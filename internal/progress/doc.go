// Package progress provides the run-progress events emitted by the scrape
// pipeline and the non-blocking hub that batches them on a background
// goroutine and fans them out to pluggable sinks such as Prometheus
// collectors or the run store.
package progress
