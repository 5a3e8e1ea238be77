package workflow

import (
	"context"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/readiness"
	"reelsync/internal/taskrunner"
)

// Store is the catalog surface the pipeline needs.
type Store interface {
	ListItems(ctx context.Context) ([]catalog.Item, error)
	GetItem(ctx context.Context, id string) (*catalog.Item, error)
	IsItemUpdated(ctx context.Context, id string) (bool, error)
	MarkItemUpdated(ctx context.Context, id string, meta catalog.Metadata) error
	IsSeriesStillAiring(ctx context.Context, id string) (bool, error)
	PersistEpisodeDates(ctx context.Context, id string, dates []catalog.EpisodeDate) error
}

// Scraper is the scraper service surface the pipeline needs.
type Scraper interface {
	ScrapeItem(ctx context.Context, id string) (catalog.Metadata, error)
	FetchEpisodes(ctx context.Context, id string, seasons int) ([]catalog.EpisodeDate, error)
}

// Gate blocks until the scraper is ready or the budget is exhausted.
type Gate interface {
	AwaitReady(ctx context.Context, endpoint string, maxAttempts int, interval time.Duration) readiness.State
}

// Phase names.
const (
	PhaseMetadata = "metadata"
	PhaseEpisodes = "episodes"
)

// Skip reasons reported in PhaseResult.Reason.
const (
	ReasonCancelled    = "cancelled"
	ReasonUnavailable  = "scraper unavailable"
	ReasonSelectFailed = "item selection failed"
)

// Phase is one ordered step of a sync run.
type Phase struct {
	Name   string
	Select func(ctx context.Context) ([]string, error)
	Action taskrunner.Action
}

// PhaseResult records how one phase resolved.
type PhaseResult struct {
	Name    string             `json:"name"`
	Skipped bool               `json:"skipped"`
	Reason  string             `json:"reason,omitempty"`
	Summary taskrunner.Summary `json:"summary"`
}

// Result aggregates a full pipeline run.
type Result struct {
	Phases    []PhaseResult `json:"phases"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Phase returns the named phase result, if the run reached it.
func (r Result) Phase(name string) (PhaseResult, bool) {
	for _, phase := range r.Phases {
		if phase.Name == name {
			return phase, true
		}
	}
	return PhaseResult{}, false
}
