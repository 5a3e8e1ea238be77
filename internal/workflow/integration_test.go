package workflow_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"reelsync/internal/logging"
	"reelsync/internal/readiness"
	"reelsync/internal/scraper"
	"reelsync/internal/testsupport"
	"reelsync/internal/workflow"
)

func TestPipelineAgainstCatalogAndScraperService(t *testing.T) {
	var episodeRequests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/scrape/"):
			id := strings.TrimPrefix(r.URL.Path, "/scrape/")
			meta := map[string]any{"title": "Movie " + id, "title_type": "movie", "start_year": 1994}
			if id == "tt0903747" {
				meta = map[string]any{"title": "Show", "title_type": "TV Series", "start_year": 2008, "season_count": 2}
			}
			_ = json.NewEncoder(w).Encode(meta)
		case r.URL.Path == "/fetch_episodes":
			episodeRequests.Add(1)
			if r.URL.Query().Get("title_id") != "tt0903747" || r.URL.Query().Get("season_count") != "2" {
				t.Errorf("unexpected episodes query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"season":1,"episode":1,"air_date":"2008-01-20"},{"season":2,"episode":1,"air_date":"2009-03-08"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithScraperURL(server.URL))
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedItems(t, store, "tt0111161", "tt0903747")

	gate := readiness.NewGate(nil, logging.NewNop())
	pipeline := workflow.NewPipeline(cfg, store, scraper.NewFromConfig(cfg), gate, logging.NewNop())

	result := pipeline.Run(context.Background())
	metadata, _ := result.Phase(workflow.PhaseMetadata)
	if metadata.Skipped || metadata.Summary.Succeeded != 2 {
		t.Fatalf("unexpected metadata phase: %+v", metadata)
	}
	episodes, _ := result.Phase(workflow.PhaseEpisodes)
	if episodes.Skipped || episodes.Summary.Total != 1 || episodes.Summary.Succeeded != 1 {
		t.Fatalf("unexpected episodes phase: %+v", episodes)
	}
	if episodeRequests.Load() != 1 {
		t.Fatalf("expected one episodes request, got %d", episodeRequests.Load())
	}

	stored, err := store.ListEpisodes(context.Background(), "tt0903747")
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 persisted episodes, got %d", len(stored))
	}

	again := pipeline.Run(context.Background())
	if rerun, _ := again.Phase(workflow.PhaseMetadata); rerun.Summary.Total != 0 {
		t.Fatalf("updated items must not be scraped again, got %+v", rerun.Summary)
	}
}
