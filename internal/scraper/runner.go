package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajidahmed66/company-vessels/internal/metrics"
	"github.com/sajidahmed66/company-vessels/internal/progress"
	"github.com/sajidahmed66/company-vessels/internal/store"
)

// Runner drains the directory queue one company at a time. Entries are never
// retried within a run: a failure marks the entry failed and the loop moves
// on.
type Runner struct {
	pipeline *Pipeline
	queue    store.DirectoryQueue
	ids      IDGenerator
	clock    Clock
	emitter  progress.Emitter
	logger   *zap.Logger
}

// RunSummary aggregates what a whole run attempted and produced.
type RunSummary struct {
	RunID     uuid.UUID
	Processed int
	Failed    int
	Inserted  int
	Updated   int
}

// NewRunner builds a runner over a pipeline and its work queue. emitter may
// be nil when nothing listens for progress.
func NewRunner(
	pipeline *Pipeline,
	queue store.DirectoryQueue,
	ids IDGenerator,
	clock Clock,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		pipeline: pipeline,
		queue:    queue,
		ids:      ids,
		clock:    clock,
		emitter:  emitter,
		logger:   logger,
	}
}

// Run processes pending directory entries until the queue drains, the context
// is canceled, or limit entries have been attempted. limit <= 0 means no
// limit.
func (r *Runner) Run(ctx context.Context, limit int) (RunSummary, error) {
	runID, err := r.ids.NewRawID()
	if err != nil {
		return RunSummary{}, fmt.Errorf("allocate run id: %w", err)
	}
	summary := RunSummary{RunID: runID}
	startedAt := r.clock.Now()

	r.emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    startedAt,
		Stage: progress.StageRunStart,
	})
	r.logger.Info("run started",
		zap.String("run_id", runID.String()),
		zap.Int("limit", limit))

	var runErr error
	for limit <= 0 || summary.Processed+summary.Failed < limit {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		entry, err := r.queue.NextPending(ctx)
		if errors.Is(err, store.ErrNotFound) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("next pending entry: %w", err)
			break
		}
		r.processEntry(ctx, runID, entry, &summary)
	}

	finishedAt := r.clock.Now()
	if runErr != nil {
		r.emit(progress.Event{
			RunID: progress.UUIDToBytes(runID),
			TS:    finishedAt,
			Stage: progress.StageRunError,
			Dur:   finishedAt.Sub(startedAt),
			Note:  runErr.Error(),
		})
		r.logger.Error("run aborted",
			zap.String("run_id", runID.String()),
			zap.Int("processed", summary.Processed),
			zap.Int("failed", summary.Failed),
			zap.Error(runErr))
		return summary, runErr
	}

	r.emit(progress.Event{
		RunID: progress.UUIDToBytes(runID),
		TS:    finishedAt,
		Stage: progress.StageRunDone,
		Dur:   finishedAt.Sub(startedAt),
	})
	r.logger.Info("run finished",
		zap.String("run_id", runID.String()),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("vessels_inserted", summary.Inserted),
		zap.Int("vessels_updated", summary.Updated))
	return summary, nil
}

func (r *Runner) processEntry(ctx context.Context, runID uuid.UUID, entry store.DirectoryEntry, summary *RunSummary) {
	startedAt := r.clock.Now()
	r.emit(progress.Event{
		RunID:   progress.UUIDToBytes(runID),
		TS:      startedAt,
		Stage:   progress.StageCompanyStart,
		Company: companyLabel(entry, Outcome{}),
		URL:     entry.SourceURL,
	})

	out, err := r.pipeline.ProcessCompany(ctx, runID, entry.SourceURL)
	finishedAt := r.clock.Now()

	if err != nil {
		summary.Failed++
		metrics.ObserveCompany("failed")
		r.logger.Warn("company failed",
			zap.String("company", companyLabel(entry, out)),
			zap.String("url", entry.SourceURL),
			zap.Error(err))
		r.emit(progress.Event{
			RunID:   progress.UUIDToBytes(runID),
			TS:      finishedAt,
			Stage:   progress.StageCompanyError,
			Company: companyLabel(entry, out),
			URL:     entry.SourceURL,
			Failure: failureKind(out),
			Dur:     finishedAt.Sub(startedAt),
			Note:    err.Error(),
		})
		if markErr := r.queue.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			r.logger.Error("mark entry failed",
				zap.Int64("entry_id", entry.ID),
				zap.Error(markErr))
		}
		return
	}

	summary.Processed++
	summary.Inserted += out.Counts.Inserted
	summary.Updated += out.Counts.Updated
	metrics.ObserveCompany("success")
	r.emit(progress.Event{
		RunID:           progress.UUIDToBytes(runID),
		TS:              finishedAt,
		Stage:           progress.StageCompanyDone,
		Company:         companyLabel(entry, out),
		URL:             entry.SourceURL,
		VesselsInserted: int64(out.Counts.Inserted),
		VesselsUpdated:  int64(out.Counts.Updated),
		Dur:             finishedAt.Sub(startedAt),
	})
	if markErr := r.queue.MarkProcessed(ctx, entry.ID); markErr != nil {
		r.logger.Error("mark entry processed",
			zap.Int64("entry_id", entry.ID),
			zap.Error(markErr))
	}
}

func (r *Runner) emit(evt progress.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

// companyLabel prefers the name extracted from the page, then the directory
// listing, then the URL. Synthetic single-URL entries have no listing name.
func companyLabel(entry store.DirectoryEntry, out Outcome) string {
	if out.CompanyName != "" {
		return out.CompanyName
	}
	if entry.CompanyName != "" {
		return entry.CompanyName
	}
	return entry.SourceURL
}

func failureKind(out Outcome) progress.FailureKind {
	if out.Failure != "" {
		return out.Failure
	}
	return progress.FailOther
}
