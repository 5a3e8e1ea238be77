package workflow

import (
	"context"

	"reelsync/internal/services"
)

func (p *Pipeline) selectPendingMetadata(ctx context.Context) ([]string, error) {
	items, err := p.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		updated, err := p.store.IsItemUpdated(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if !updated {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

func (p *Pipeline) selectAiringSeries(ctx context.Context) ([]string, error) {
	items, err := p.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		airing, err := p.store.IsSeriesStillAiring(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if airing {
			ids = append(ids, item.ID)
		}
	}
	return ids, nil
}

// refreshMetadata and refreshEpisodes detach from run cancellation once
// admitted; the scraper client bounds each request with its own timeout.
func (p *Pipeline) refreshMetadata(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	meta, err := p.scraper.ScrapeItem(ctx, id)
	if err != nil {
		return err
	}
	if err := p.store.MarkItemUpdated(ctx, id, meta); err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "mark item updated", id, err)
	}
	return nil
}

func (p *Pipeline) refreshEpisodes(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	item, err := p.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	dates, err := p.scraper.FetchEpisodes(ctx, id, item.SeasonCount)
	if err != nil {
		return err
	}
	if err := p.store.PersistEpisodeDates(ctx, id, dates); err != nil {
		return services.Wrap(services.ErrTransient, "workflow", "persist episode dates", id, err)
	}
	return nil
}
