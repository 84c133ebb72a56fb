// Package store defines interfaces for persistence dependencies (run history
// and the directory work queue). Implementations live in other packages; this
// package must not import database drivers or concrete clients.
package store
