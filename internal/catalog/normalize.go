package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// movieTypes lists folded title types that never have episodes.
var movieTypes = map[string]struct{}{
	"movie":     {},
	"tvmovie":   {},
	"short":     {},
	"tvshort":   {},
	"video":     {},
	"tvspecial": {},
}

// IsSeriesType reports whether titleType is episodic. Empty values are treated
// as unknown and therefore not a series.
func IsSeriesType(titleType string) bool {
	key := foldTitleType(titleType)
	if key == "" {
		return false
	}
	_, movie := movieTypes[key]
	return !movie
}

// NormalizeTitleType canonicalizes scraper title types ("TV Series",
// "tv_series", "tvSeries") to a single folded spelling.
func NormalizeTitleType(titleType string) string {
	return foldTitleType(titleType)
}

func foldTitleType(value string) string {
	value = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(value))
	return cases.Fold().String(value)
}

// NormalizeGenres title-cases, trims, and de-duplicates genre names while
// preserving their first-seen order.
func NormalizeGenres(genres []string) []string {
	if len(genres) == 0 {
		return nil
	}
	// Casers carry state and are not shared across goroutines.
	title := cases.Title(language.English)
	fold := cases.Fold()
	out := make([]string, 0, len(genres))
	seen := make(map[string]struct{}, len(genres))
	for _, genre := range genres {
		genre = strings.Join(strings.Fields(genre), " ")
		if genre == "" {
			continue
		}
		key := fold.String(genre)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, title.String(genre))
	}
	return out
}

func joinGenres(genres []string) string {
	return strings.Join(genres, ",")
}

func splitGenres(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
