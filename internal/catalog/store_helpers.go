package catalog

import (
	"database/sql"
	"errors"
	"time"
)

func scanItem(scanner interface{ Scan(dest ...any) error }) (Item, error) {
	var (
		item         Item
		title        sql.NullString
		titleType    sql.NullString
		startYear    sql.NullInt64
		endYear      sql.NullInt64
		genres       sql.NullString
		metadata     sql.NullString
		updated      int
		createdRaw   string
		updatedRaw   string
		refreshedRaw sql.NullString
	)
	if err := scanner.Scan(
		&item.ID,
		&title,
		&titleType,
		&startYear,
		&endYear,
		&item.SeasonCount,
		&genres,
		&metadata,
		&updated,
		&createdRaw,
		&updatedRaw,
		&refreshedRaw,
	); err != nil {
		return Item{}, err
	}

	item.Title = title.String
	item.TitleType = titleType.String
	item.StartYear = int(startYear.Int64)
	item.EndYear = int(endYear.Int64)
	item.Genres = splitGenres(genres.String)
	item.MetadataJSON = metadata.String
	item.Updated = updated != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if modified, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = modified
	}
	if refreshedRaw.Valid {
		if refreshed, err := parseTimeString(refreshedRaw.String); err == nil {
			item.EpisodesRefreshedAt = &refreshed
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
