package catalog

import (
	"encoding/json"
	"time"
)

// Item is one catalog row.
type Item struct {
	ID          string
	Title       string
	TitleType   string
	StartYear   int
	EndYear     int
	SeasonCount int
	Genres      []string
	Updated     bool
	// MetadataJSON holds the last scraper payload verbatim.
	MetadataJSON        string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	EpisodesRefreshedAt *time.Time
}

// IsSeries reports whether the item's title type describes episodic content.
func (i Item) IsSeries() bool {
	return IsSeriesType(i.TitleType)
}

// StillAiring reports whether the item is a series without a known end year.
func (i Item) StillAiring() bool {
	return i.Updated && i.IsSeries() && i.EndYear == 0
}

// Metadata is the scraper's per-item payload.
type Metadata struct {
	Title       string   `json:"title"`
	TitleType   string   `json:"title_type"`
	StartYear   int      `json:"start_year,omitempty"`
	EndYear     int      `json:"end_year,omitempty"`
	SeasonCount int      `json:"season_count,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Votes       int      `json:"votes,omitempty"`
	Runtime     int      `json:"runtime_minutes,omitempty"`
	Plot        string   `json:"plot,omitempty"`

	// Raw preserves the original response body when available.
	Raw json.RawMessage `json:"-"`
}

// EpisodeDate is one episode's air date as reported by the scraper.
type EpisodeDate struct {
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Title   string `json:"title,omitempty"`
	AirDate string `json:"air_date,omitempty"`
}

// Stats summarizes catalog contents for status output.
type Stats struct {
	Total    int `json:"total"`
	Updated  int `json:"updated"`
	Pending  int `json:"pending"`
	Series   int `json:"series"`
	Airing   int `json:"airing"`
	Episodes int `json:"episodes"`
}
