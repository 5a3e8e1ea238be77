package api

import (
	"encoding/json"
	"time"

	"reelsync/internal/catalog"
	"reelsync/internal/lifecycle"
	"reelsync/internal/logging"
	"reelsync/internal/workflow"
)

// FromCatalogItem converts a catalog row to its API representation.
func FromCatalogItem(item catalog.Item) CatalogItem {
	dto := CatalogItem{
		ID:          item.ID,
		Title:       item.Title,
		TitleType:   item.TitleType,
		StartYear:   item.StartYear,
		EndYear:     item.EndYear,
		SeasonCount: item.SeasonCount,
		Genres:      item.Genres,
		Updated:     item.Updated,
		StillAiring: item.StillAiring(),
		CreatedAt:   formatTime(item.CreatedAt),
		UpdatedAt:   formatTime(item.UpdatedAt),
	}
	if item.EpisodesRefreshedAt != nil {
		dto.EpisodesRefreshedAt = formatTime(*item.EpisodesRefreshedAt)
	}
	if raw := item.MetadataJSON; raw != "" && json.Valid([]byte(raw)) {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromCatalogItems converts a slice of catalog rows.
func FromCatalogItems(items []catalog.Item) []CatalogItem {
	out := make([]CatalogItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromCatalogItem(item))
	}
	return out
}

// FromCatalogStats converts aggregate catalog counts.
func FromCatalogStats(stats catalog.Stats) CatalogStats {
	return CatalogStats(stats)
}

// FromResult converts a pipeline result.
func FromResult(result workflow.Result) SyncResult {
	dto := SyncResult{
		Cancelled:  result.Cancelled,
		DurationMS: result.Duration.Milliseconds(),
		Phases:     make([]PhaseSummary, 0, len(result.Phases)),
	}
	for _, phase := range result.Phases {
		dto.Phases = append(dto.Phases, PhaseSummary{
			Name:       phase.Name,
			Skipped:    phase.Skipped,
			Reason:     phase.Reason,
			Total:      phase.Summary.Total,
			Succeeded:  phase.Summary.Succeeded,
			Failed:     phase.Summary.Failed,
			Abandoned:  phase.Summary.Skipped,
			DurationMS: phase.Summary.Duration.Milliseconds(),
		})
	}
	return dto
}

// FromLifecycleStatus converts the controller snapshot.
func FromLifecycleStatus(status lifecycle.Status) SyncStatus {
	dto := SyncStatus{
		State:      string(status.State),
		RunID:      status.RunID,
		StartedAt:  formatTime(status.StartedAt),
		FinishedAt: formatTime(status.FinishedAt),
		Runs:       status.Runs,
		ShutDown:   status.ShutDown,
	}
	if status.LastResult != nil {
		last := FromResult(*status.LastResult)
		dto.LastRun = &last
	}
	return dto
}

// FromLogEvents converts stream hub events.
func FromLogEvents(events []logging.LogEvent) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: formatTime(evt.Timestamp),
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			RunID:     evt.RunID,
			Phase:     evt.Phase,
			ItemID:    evt.ItemID,
			Fields:    evt.Fields,
		})
	}
	return out
}

// FormatTime renders t in the API timestamp format; zero values render empty.
func FormatTime(t time.Time) string {
	return formatTime(t)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
