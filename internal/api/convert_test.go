package api_test

import (
	"encoding/json"
	"testing"
	"time"

	"reelsync/internal/api"
	"reelsync/internal/catalog"
	"reelsync/internal/lifecycle"
	"reelsync/internal/taskrunner"
	"reelsync/internal/workflow"
)

func TestFromCatalogItem(t *testing.T) {
	refreshed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	item := catalog.Item{
		ID:                  "tt0903747",
		Title:               "Show",
		TitleType:           "tvseries",
		StartYear:           2008,
		SeasonCount:         5,
		Genres:              []string{"Crime", "Drama"},
		Updated:             true,
		MetadataJSON:        `{"title":"Show"}`,
		CreatedAt:           time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		EpisodesRefreshedAt: &refreshed,
	}

	dto := api.FromCatalogItem(item)
	if !dto.StillAiring {
		t.Fatal("expected updated series without end year to be airing")
	}
	if dto.CreatedAt != "2024-01-02T03:04:05.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("zero time should render empty, got %q", dto.UpdatedAt)
	}
	if dto.EpisodesRefreshedAt != "2024-03-01T08:00:00.000Z" {
		t.Fatalf("unexpected episodesRefreshedAt %q", dto.EpisodesRefreshedAt)
	}

	encoded, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	meta, ok := decoded["metadata"].(map[string]any)
	if !ok || meta["title"] != "Show" {
		t.Fatalf("expected metadata passed through as an object, got %v", decoded["metadata"])
	}
}

func TestFromCatalogItemDropsInvalidMetadata(t *testing.T) {
	dto := api.FromCatalogItem(catalog.Item{ID: "tt1", MetadataJSON: "{not json"})
	if dto.Metadata != nil {
		t.Fatalf("expected invalid metadata to be dropped, got %s", dto.Metadata)
	}
}

func TestFromLifecycleStatus(t *testing.T) {
	result := workflow.Result{
		Duration: 1500 * time.Millisecond,
		Phases: []workflow.PhaseResult{
			{Name: workflow.PhaseMetadata, Summary: taskrunner.Summary{Total: 5, Succeeded: 4, Failed: 1, Duration: time.Second}},
			{Name: workflow.PhaseEpisodes, Skipped: true, Reason: workflow.ReasonUnavailable},
		},
	}
	status := lifecycle.Status{
		State:      lifecycle.StateCompleted,
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Runs:       1,
		LastResult: &result,
	}

	dto := api.FromLifecycleStatus(status)
	if dto.State != "completed" || dto.RunID != "run-1" || dto.FinishedAt != "" {
		t.Fatalf("unexpected sync status: %+v", dto)
	}
	if dto.LastRun == nil || dto.LastRun.DurationMS != 1500 || len(dto.LastRun.Phases) != 2 {
		t.Fatalf("unexpected last run: %+v", dto.LastRun)
	}
	metadata := dto.LastRun.Phases[0]
	if metadata.Succeeded != 4 || metadata.Failed != 1 || metadata.DurationMS != 1000 {
		t.Fatalf("unexpected metadata phase: %+v", metadata)
	}
	if episodes := dto.LastRun.Phases[1]; !episodes.Skipped || episodes.Reason != workflow.ReasonUnavailable {
		t.Fatalf("unexpected episodes phase: %+v", episodes)
	}
}
