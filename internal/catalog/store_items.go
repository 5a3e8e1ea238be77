package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = "id, title, title_type, start_year, end_year, season_count, genres, metadata_json, updated, created_at, updated_at, episodes_refreshed_at"

// AddItems inserts catalog ids that are not yet present and returns how many
// rows were created. Blank ids are ignored.
func (s *Store) AddItems(ctx context.Context, ids ...string) (int, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		res, err := s.execWithRetry(ctx,
			`INSERT OR IGNORE INTO items (id, created_at, updated_at) VALUES (?, ?, ?)`,
			id, timestamp, timestamp,
		)
		if err != nil {
			return added, fmt.Errorf("insert item %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}
	return added, nil
}

// ListItems returns every catalog item ordered by id.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItem fetches a catalog item by identifier.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// IsItemUpdated reports whether metadata has been scraped for id.
func (s *Store) IsItemUpdated(ctx context.Context, id string) (bool, error) {
	var updated int
	err := s.db.QueryRowContext(ctx, `SELECT updated FROM items WHERE id = ?`, id).Scan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("check updated: %w", err)
	}
	return updated != 0, nil
}

// MarkItemUpdated stores scraped metadata for id and flags it as updated.
func (s *Store) MarkItemUpdated(ctx context.Context, id string, meta Metadata) error {
	raw := []byte(meta.Raw)
	if len(raw) == 0 {
		encoded, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		raw = encoded
	}

	res, err := s.execWithRetry(ctx,
		`UPDATE items
         SET title = ?, title_type = ?, start_year = ?, end_year = ?, season_count = ?,
             genres = ?, metadata_json = ?, updated = 1, updated_at = ?
         WHERE id = ?`,
		nullableString(strings.TrimSpace(meta.Title)),
		nullableString(NormalizeTitleType(meta.TitleType)),
		nullableInt(meta.StartYear),
		nullableInt(meta.EndYear),
		max(meta.SeasonCount, 0),
		nullableString(joinGenres(NormalizeGenres(meta.Genres))),
		string(raw),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark item updated: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// IsSeriesStillAiring reports whether id is a scraped series with no end year.
func (s *Store) IsSeriesStillAiring(ctx context.Context, id string) (bool, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return false, err
	}
	return item.StillAiring(), nil
}

// PersistEpisodeDates replaces the stored episodes for id.
func (s *Store) PersistEpisodeDates(ctx context.Context, id string, dates []EpisodeDate) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin episodes tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE item_id = ?`, id); err != nil {
			return fmt.Errorf("clear episodes: %w", err)
		}
		for _, date := range dates {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO episodes (item_id, season, episode, title, air_date) VALUES (?, ?, ?, ?, ?)`,
				id, date.Season, date.Episode, nullableString(date.Title), nullableString(date.AirDate),
			); err != nil {
				return fmt.Errorf("insert episode s%02de%02d: %w", date.Season, date.Episode, err)
			}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET episodes_refreshed_at = ?, updated_at = ? WHERE id = ?`,
			time.Now().UTC().Format(time.RFC3339Nano), time.Now().UTC().Format(time.RFC3339Nano), id,
		)
		if err != nil {
			return fmt.Errorf("stamp episodes refresh: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return tx.Commit()
	})
}

// ListEpisodes returns the stored episodes for id ordered by season and episode.
func (s *Store) ListEpisodes(ctx context.Context, id string) ([]EpisodeDate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT season, episode, title, air_date FROM episodes WHERE item_id = ? ORDER BY season, episode`, id)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []EpisodeDate
	for rows.Next() {
		var (
			ep      EpisodeDate
			title   sql.NullString
			airDate sql.NullString
		)
		if err := rows.Scan(&ep.Season, &ep.Episode, &title, &airDate); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.Title = title.String
		ep.AirDate = airDate.String
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// Stats summarizes catalog contents.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	for _, item := range items {
		stats.Total++
		if item.Updated {
			stats.Updated++
		} else {
			stats.Pending++
		}
		if item.IsSeries() {
			stats.Series++
		}
		if item.StillAiring() {
			stats.Airing++
		}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM episodes`).Scan(&stats.Episodes); err != nil {
		return Stats{}, fmt.Errorf("count episodes: %w", err)
	}
	return stats, nil
}
