package scraper

import "errors"

// ErrPageNotFound indicates the rendered page carried a 404-style title.
// The company is failed immediately; the fetch is never retried.
var ErrPageNotFound = errors.New("page not found")
