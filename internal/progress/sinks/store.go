package sinks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/progress"
	"github.com/sajidahmed66/company-vessels/internal/store"
)

// StoreSink persists run lifecycle and counters via a store.RunRepository. It
// collapses per-company deltas per run to reduce write amplification.
type StoreSink struct {
	repo   store.RunRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.RunRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards run lifecycle events and collapsed counter deltas to the
// repository. It respects ctx deadlines and returns repository errors verbatim.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	deltas := make(map[uuid.UUID]*store.RunCounters)

	for _, evt := range batch {
		runID := evt.RunUUID()
		switch evt.Stage {
		case progress.StageRunStart, progress.StageRunDone, progress.StageRunError:
			if err := s.handleRunEvent(ctx, runID, evt); err != nil {
				return err
			}
		case progress.StageCompanyDone:
			delta := counters(deltas, runID)
			delta.Processed++
			delta.Inserted += evt.VesselsInserted
			delta.Updated += evt.VesselsUpdated
		case progress.StageCompanyError:
			counters(deltas, runID).Failed++
		}
	}

	for runID, delta := range deltas {
		if *delta == (store.RunCounters{}) {
			continue
		}
		if err := s.repo.ApplyCounts(ctx, runID, *delta); err != nil {
			return fmt.Errorf("apply run counters: %w", err)
		}
	}
	return nil
}

func (s *StoreSink) handleRunEvent(ctx context.Context, runID uuid.UUID, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		if err := s.repo.StartRun(ctx, runID, evt.TS); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
	case progress.StageRunDone:
		if err := s.repo.CompleteRun(ctx, runID, evt.TS, store.RunSuccess, nil); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
	case progress.StageRunError:
		var note *string
		if evt.Note != "" {
			note = &evt.Note
		}
		if err := s.repo.CompleteRun(ctx, runID, evt.TS, store.RunError, note); err != nil {
			return fmt.Errorf("complete run: %w", err)
		}
	}
	return nil
}

func counters(deltas map[uuid.UUID]*store.RunCounters, runID uuid.UUID) *store.RunCounters {
	delta := deltas[runID]
	if delta == nil {
		delta = &store.RunCounters{}
		deltas[runID] = delta
	}
	return delta
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
