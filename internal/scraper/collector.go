// Package scraper implements vacancy fetching, collection and ingestion.
package scraper

import (
	"context"

	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/model"
)

// Source fetches every vacancy of a single employer.
type Source interface {
	FetchVacancies(ctx context.Context, employerID string) ([]model.Vacancy, error)
}

// Collector walks the configured employers one at a time.
type Collector struct {
	source Source
	log    *logging.Logger
}

// NewCollector constructs a Collector.
func NewCollector(source Source, log *logging.Logger) *Collector {
	return &Collector{source: source, log: log.With("component", "collector")}
}

// Collect fetches vacancies for each employer sequentially and returns them
// keyed by external id. A failed employer maps to an empty list; it never
// stops the remaining employers. Once ctx is done the rest are recorded as
// empty without being requested.
func (c *Collector) Collect(ctx context.Context, employers []model.Employer) map[string][]model.Vacancy {
	out, _ := c.collect(ctx, employers)
	return out
}

// collect is Collect that also reports the external ids whose fetch failed
// or was skipped.
func (c *Collector) collect(ctx context.Context, employers []model.Employer) (map[string][]model.Vacancy, []string) {
	out := make(map[string][]model.Vacancy, len(employers))
	var failed []string

	for _, e := range employers {
		if ctx.Err() != nil {
			out[e.ExternalID] = []model.Vacancy{}
			failed = append(failed, e.ExternalID)
			continue
		}

		c.log.Info("Fetching vacancies", "employer", e.Name, "employer_id", e.ExternalID)
		vacancies, err := c.source.FetchVacancies(ctx, e.ExternalID)
		if err != nil {
			c.log.Warn("Fetch failed, continuing with no vacancies",
				"employer", e.Name, "employer_id", e.ExternalID, "error", err)
			out[e.ExternalID] = []model.Vacancy{}
			failed = append(failed, e.ExternalID)
			continue
		}
		if vacancies == nil {
			vacancies = []model.Vacancy{}
		}
		out[e.ExternalID] = vacancies
	}

	return out, failed
}
