package app

import (
	"context"
	"errors"
	"fmt"

	"feedhub/domain"
	"feedhub/internal/helper"
)

// Subscribe attaches a user to a feed. A known feed only gains a
// subscription plus a retroactive fan-out of its existing items to the new
// subscriber; no network fetch happens. An unknown feed is fetched,
// parsed, and created together with all of its items before the
// subscription is attached. Unlike the polling path there is no later
// retry tick here, so any failure aborts the whole request.
func (s *Service) Subscribe(ctx context.Context, feedURL, userName string) error {
	if err := helper.ValidateFeedURL(feedURL); err != nil {
		return err
	}
	if userName == "" {
		return fmt.Errorf("user name is required")
	}
	user, err := s.store.EnsureUser(ctx, userName)
	if err != nil {
		return err
	}

	feedID, err := s.store.FindFeedIDByURL(ctx, feedURL)
	switch {
	case err == nil:
		return s.subscribeExisting(ctx, user.ID, feedID)
	case errors.Is(err, domain.ErrNotFound):
		return s.subscribeNew(ctx, user.ID, feedURL)
	default:
		return err
	}
}

func (s *Service) subscribeExisting(ctx context.Context, userID, feedID string) error {
	ids, err := s.store.ListItemIDs(ctx, feedID)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx domain.Store) error {
		if err := tx.CreateSubscription(ctx, userID, feedID); err != nil {
			return err
		}
		rows := FanOut(ids, []string{userID})
		if len(rows) == 0 {
			return nil
		}
		return tx.InsertSubscribedItems(ctx, rows)
	})
}

func (s *Service) subscribeNew(ctx context.Context, userID, feedURL string) error {
	data, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return err
	}
	ch, items, err := s.parser.Parse(data, feedURL)
	if err != nil {
		return err
	}
	return s.store.InTx(ctx, func(tx domain.Store) error {
		created, err := tx.InsertChannel(ctx, ch)
		if err != nil {
			return err
		}
		inserted, err := tx.InsertItems(ctx, created.ID, items)
		if err != nil {
			return err
		}
		if err := tx.CreateSubscription(ctx, userID, created.ID); err != nil {
			return err
		}
		rows := FanOut(itemIDs(inserted), []string{userID})
		if len(rows) == 0 {
			return nil
		}
		return tx.InsertSubscribedItems(ctx, rows)
	})
}
