package app

import "feedhub/domain"

// FanOut produces the full cross product of subscribers and newly visible
// item ids, every row unseen. Used both when a poll discovers new items
// (all current subscribers of the feed) and when a user joins a feed that
// already has items (just the new subscriber).
func FanOut(itemIDs, subscriberIDs []string) []domain.SubscribedItem {
	if len(itemIDs) == 0 || len(subscriberIDs) == 0 {
		return nil
	}
	rows := make([]domain.SubscribedItem, 0, len(itemIDs)*len(subscriberIDs))
	for _, sub := range subscriberIDs {
		for _, id := range itemIDs {
			rows = append(rows, domain.SubscribedItem{UserID: sub, ItemID: id})
		}
	}
	return rows
}

func itemIDs(items []domain.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
