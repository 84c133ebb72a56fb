// Package progress defines the event structures emitted by the scrape pipeline.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageRunDone      Stage = "RUN_DONE"
	StageRunError     Stage = "RUN_ERROR"
	StageCompanyStart Stage = "COMPANY_START"
	StageCompanyDone  Stage = "COMPANY_DONE"
	StageCompanyError Stage = "COMPANY_ERROR"
)

// FailureKind classifies where in the pipeline a company failed.
type FailureKind string

// Supported failure kinds tracked for failed companies.
const (
	FailNavigation  FailureKind = "navigation"
	FailResolve     FailureKind = "resolve"
	FailBlocked     FailureKind = "blocked"
	FailPersistence FailureKind = "persistence"
	FailOther       FailureKind = "other"
)

// Event captures a single milestone of scrape progress.
type Event struct {
	// RunID identifies the scrape run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which run or company milestone occurred.
	Stage Stage
	// Company scopes company events to the company being processed.
	Company string
	// URL is the optional company page URL; it should not contain credentials.
	URL string
	// VesselsInserted and VesselsUpdated carry the vessel batch outcome for a
	// completed company.
	VesselsInserted int64
	VesselsUpdated  int64
	// Failure classifies a failed company.
	Failure FailureKind
	// Dur captures wall time for companies and completed runs.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageCompanyStart, StageCompanyDone:
		if e.Company == "" {
			return errors.New("company events require a company")
		}
	case StageCompanyError:
		if e.Company == "" {
			return errors.New("company events require a company")
		}
		if e.Failure == "" {
			return errors.New("company error requires a failure kind")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
