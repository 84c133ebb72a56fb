// Package uuid mints identifiers for scrape runs.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates UUID v7 values. Run rows sort chronologically by ID
// because v7 embeds the timestamp in the high bits.
type Generator struct{}

// New returns a Generator.
func New() Generator {
	return Generator{}
}

// NewRawID returns a fresh UUID v7.
func (Generator) NewRawID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generate uuid7: %w", err)
	}
	return id, nil
}
