package domain

import (
	"context"
	"time"
)

// Store is the persistence gateway for channels, items, users and
// subscriptions. Implementations must assign item and channel ids on
// insert and keep guid unique per feed.
type Store interface {
	Ensure(ctx context.Context) error

	// InTx runs fn against a transactional view of the store. All writes
	// made through the passed Store commit together or not at all.
	InTx(ctx context.Context, fn func(Store) error) error

	ListFeedsWithSubscribers(ctx context.Context) ([]FeedSubscribers, error)
	FindFeedIDByURL(ctx context.Context, url string) (string, error)
	ListItemIDs(ctx context.Context, feedID string) ([]string, error)
	ListItemRefs(ctx context.Context, feedID string) (map[string]ItemRef, error)

	InsertChannel(ctx context.Context, ch Channel) (Channel, error)
	InsertItems(ctx context.Context, feedID string, items []NewItem) ([]Item, error)
	UpdateItem(ctx context.Context, id string, item NewItem) error

	EnsureUser(ctx context.Context, name string) (User, error)
	CreateSubscription(ctx context.Context, userID, feedID string) error
	InsertSubscribedItems(ctx context.Context, rows []SubscribedItem) error

	ListUserItems(ctx context.Context, userID, feedID string, limit int) ([]CompositeItem, error)
	ListSubscribedFeeds(ctx context.Context, userID string) ([]SubscribedFeed, error)
	MarkItemSeen(ctx context.Context, userID, itemID string) error
}

// Fetcher retrieves the raw bytes of a feed document.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]byte, error)
}

// FeedParser turns raw feed bytes into the canonical model. Detection of
// the wire format is the parser's concern; callers only see the result.
type FeedParser interface {
	Parse(data []byte, feedURL string) (Channel, []NewItem, error)
}

// Aggregator exposes application-level controls for background polling.
type Aggregator interface {
	Start(ctx context.Context) error
	Stop() error

	SetInterval(d time.Duration)
	Resize(workers int) error
	CurrentInterval() time.Duration
	CurrentWorkers() int
}

// Subscriber handles one-shot subscription requests.
type Subscriber interface {
	Subscribe(ctx context.Context, feedURL, userName string) error
}
