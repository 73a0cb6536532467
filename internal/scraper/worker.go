package scraper

import (
	"context"
	"fmt"
	"time"

	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/model"
)

// PostingStore is the part of the persistence layer the worker writes to.
type PostingStore interface {
	UpsertEmployer(ctx context.Context, externalID, name string) (int64, error)
	InsertPosting(ctx context.Context, employerID int64, v model.Vacancy) (bool, error)
}

// Notifier receives the summary of every finished run.
type Notifier interface {
	SyncCompleted(ctx context.Context, summary model.SyncSummary) error
}

// Worker runs the full sync cycle: it upserts the configured employers,
// collects their vacancies, filters excluded titles and inserts the rest,
// skipping duplicates.
type Worker struct {
	store     PostingStore
	collector *Collector
	notifier  Notifier
	exclude   []string
	log       *logging.Logger
	now       func() time.Time
}

// NewWorker constructs a Worker. notifier may be nil.
func NewWorker(store PostingStore, collector *Collector, notifier Notifier, exclude []string, log *logging.Logger) *Worker {
	return &Worker{
		store:     store,
		collector: collector,
		notifier:  notifier,
		exclude:   exclude,
		log:       log.With("component", "worker"),
		now:       time.Now,
	}
}

// Run executes one sync cycle. A failure to register employers and a
// cancelled ctx are returned as errors; fetch and per-posting insert failures
// are logged and counted in the summary. An interrupted run is not notified.
func (w *Worker) Run(ctx context.Context, employers []model.Employer) (model.SyncSummary, error) {
	summary := model.SyncSummary{
		Employers: len(employers),
		StartedAt: w.now().UTC().Format(time.RFC3339),
	}
	w.log.Info("Starting sync", "employers", len(employers))

	ids := make(map[string]int64, len(employers))
	for _, e := range employers {
		id, err := w.store.UpsertEmployer(ctx, e.ExternalID, e.Name)
		if err != nil {
			return summary, fmt.Errorf("upsert employer %s: %w", e.ExternalID, err)
		}
		ids[e.ExternalID] = id
	}

	collected, failed := w.collector.collect(ctx, employers)
	summary.FailedEmployers = failed
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("sync interrupted: %w", err)
	}

	for _, e := range employers {
		for _, v := range collected[e.ExternalID] {
			if err := ctx.Err(); err != nil {
				w.log.Warn("Sync interrupted", "inserted", summary.Inserted, "error", err)
				return summary, fmt.Errorf("sync interrupted: %w", err)
			}
			summary.Fetched++

			if ContainsExcludedTerm(v.Name, w.exclude) {
				summary.Filtered++
				continue
			}

			inserted, err := w.store.InsertPosting(ctx, ids[e.ExternalID], v)
			if err != nil {
				w.log.Error("Insert posting failed",
					"employer_id", e.ExternalID, "vacancy_id", v.ID, "error", err)
				summary.Errors++
				continue
			}
			if inserted {
				summary.Inserted++
			} else {
				summary.Duplicates++
			}
		}
	}

	summary.FinishedAt = w.now().UTC().Format(time.RFC3339)
	w.log.Info("Sync done",
		"fetched", summary.Fetched,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"filtered", summary.Filtered,
		"errors", summary.Errors,
		"failed_employers", len(summary.FailedEmployers))

	if w.notifier != nil {
		if err := w.notifier.SyncCompleted(ctx, summary); err != nil {
			w.log.Warn("Publish sync summary failed", "error", err)
		}
	}

	return summary, nil
}
