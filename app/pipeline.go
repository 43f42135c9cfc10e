// Package app orchestrates the ingestion pipeline: fetch, parse,
// reconcile against prior state, and fan new items out to subscribers.
package app

import (
	"context"

	"go.uber.org/zap"

	"feedhub/domain"
)

// Service wires the pipeline stages to their ports.
type Service struct {
	store   domain.Store
	fetcher domain.Fetcher
	parser  domain.FeedParser
	log     *zap.SugaredLogger
}

func NewService(store domain.Store, fetcher domain.Fetcher, parser domain.FeedParser, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, fetcher: fetcher, parser: parser, log: log}
}

// Snapshot reads the current set of feeds with their subscribers. The
// scheduler takes one per tick and dispatches from it, so a tick never
// observes subscription changes made while it runs.
func (s *Service) Snapshot(ctx context.Context) ([]domain.FeedSubscribers, error) {
	return s.store.ListFeedsWithSubscribers(ctx)
}

// PollFeed runs one full pipeline pass for a single feed and returns the
// number of newly inserted items. The feed is always refetched and
// reparsed in full; reconciliation is what keeps the pass idempotent.
// Item writes and fan-out rows commit in one transaction, so a failed
// pass leaves no partial state behind.
func (s *Service) PollFeed(ctx context.Context, f domain.FeedSubscribers) (int, error) {
	data, err := s.fetcher.Fetch(ctx, f.FeedURL)
	if err != nil {
		return 0, err
	}
	_, items, err := s.parser.Parse(data, f.FeedURL)
	if err != nil {
		return 0, err
	}
	prior, err := s.store.ListItemRefs(ctx, f.FeedID)
	if err != nil {
		return 0, err
	}
	classified := Reconcile(items, prior)
	if len(classified.New) == 0 && len(classified.Updated) == 0 {
		return 0, nil
	}

	var inserted []domain.Item
	err = s.store.InTx(ctx, func(tx domain.Store) error {
		for _, u := range classified.Updated {
			if err := tx.UpdateItem(ctx, u.ID, u.Item); err != nil {
				return err
			}
		}
		if len(classified.New) == 0 {
			return nil
		}
		var err error
		inserted, err = tx.InsertItems(ctx, f.FeedID, classified.New)
		if err != nil {
			return err
		}
		rows := FanOut(itemIDs(inserted), f.Subscribers)
		if len(rows) == 0 {
			return nil
		}
		return tx.InsertSubscribedItems(ctx, rows)
	})
	if err != nil {
		return 0, err
	}
	if len(classified.Updated) > 0 {
		s.log.Debugw("updated items in place", "feed", f.FeedURL, "count", len(classified.Updated))
	}
	return len(inserted), nil
}
