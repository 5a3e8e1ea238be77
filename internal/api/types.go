package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// CatalogItem describes a catalog row in a transport-friendly format.
type CatalogItem struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title,omitempty"`
	TitleType           string          `json:"titleType,omitempty"`
	StartYear           int             `json:"startYear,omitempty"`
	EndYear             int             `json:"endYear,omitempty"`
	SeasonCount         int             `json:"seasonCount,omitempty"`
	Genres              []string        `json:"genres,omitempty"`
	Updated             bool            `json:"updated"`
	StillAiring         bool            `json:"stillAiring"`
	CreatedAt           string          `json:"createdAt,omitempty"`
	UpdatedAt           string          `json:"updatedAt,omitempty"`
	EpisodesRefreshedAt string          `json:"episodesRefreshedAt,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

// CatalogStats summarizes catalog contents.
type CatalogStats struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Pending  int `json:"pending"`
	Series   int `json:"series"`
	Airing   int `json:"airing"`
	Episodes int `json:"episodes"`
}

// CatalogListResponse wraps catalog rows and aggregate counts.
type CatalogListResponse struct {
	Items []CatalogItem `json:"items"`
	Stats CatalogStats  `json:"stats"`
}

// PhaseSummary reports one pipeline phase.
type PhaseSummary struct {
	Name       string `json:"name"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Abandoned  int    `json:"abandoned"`
	DurationMS int64  `json:"durationMs"`
}

// SyncResult reports a finished pipeline run.
type SyncResult struct {
	Cancelled  bool           `json:"cancelled"`
	DurationMS int64          `json:"durationMs"`
	Phases     []PhaseSummary `json:"phases"`
}

// SyncStatus mirrors the lifecycle controller.
type SyncStatus struct {
	State      string      `json:"state"`
	RunID      string      `json:"runId,omitempty"`
	StartedAt  string      `json:"startedAt,omitempty"`
	FinishedAt string      `json:"finishedAt,omitempty"`
	Runs       int         `json:"runs"`
	ShutDown   bool        `json:"shutDown,omitempty"`
	LastRun    *SyncResult `json:"lastRun,omitempty"`
}

// SupervisorStatus reports the scraper process and its reachability.
type SupervisorStatus struct {
	State      string `json:"state"`
	WorkDir    string `json:"workDir,omitempty"`
	ScraperURL string `json:"scraperUrl"`
	Healthy    bool   `json:"healthy"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running              bool             `json:"running"`
	PID                  int              `json:"pid"`
	StartedAt            string           `json:"startedAt,omitempty"`
	LockFilePath         string           `json:"lockFilePath"`
	CatalogDBPath        string           `json:"catalogDbPath"`
	LogPath              string           `json:"logPath,omitempty"`
	Supervisor           SupervisorStatus `json:"supervisor"`
	Sync                 SyncStatus       `json:"sync"`
	Catalog              CatalogStats     `json:"catalog"`
	NotificationsDropped int              `json:"notificationsDropped"`
}

// RestartResponse acknowledges a sync restart.
type RestartResponse struct {
	RunID string `json:"runId"`
}

// ScrapeRequest asks the daemon to run a bulk scrape.
type ScrapeRequest struct {
	Criteria string `json:"criteria"`
	Quantity int    `json:"quantity"`
}

// ScrapeResponse reports a completed bulk scrape and the sync run it started.
type ScrapeResponse struct {
	Inserted int    `json:"inserted"`
	RunID    string `json:"runId,omitempty"`
}

// LogEvent is a structured log line for live tailing.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	RunID     string            `json:"runId,omitempty"`
	Phase     string            `json:"phase,omitempty"`
	ItemID    string            `json:"itemId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse carries a batch of log events and the cursor for the next
// request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
