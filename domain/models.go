package domain

import "time"

// Channel is the canonical metadata of one polled feed. A Channel is created
// on the first successful fetch of a new URL and is immutable afterwards.
type Channel struct {
	ID          string
	Title       string
	Description string
	SiteLink    string
	FeedLink    string // the polled URL, not taken from the document
	UpdatedAt   time.Time
}

// NewItem is a normalized feed entry before storage has assigned an id.
// GUID is the format-native identifier (RSS guid, Atom id) and is unique
// within its feed.
type NewItem struct {
	GUID        string
	Link        string
	Title       string
	Summary     string
	Content     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
}

// Item is a stored feed entry. ID is assigned by storage and never changes.
type Item struct {
	ID          string
	GUID        string
	Link        string
	Title       string
	Summary     string
	Content     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
	FeedID      string
}

// ItemRef is the prior-state view of a stored item used by reconciliation:
// just enough to classify an incoming item carrying the same guid.
type ItemRef struct {
	ID          string
	PublishedAt *time.Time
}

// ItemUpdate carries an in-place rewrite of a stored item, preserving its id.
type ItemUpdate struct {
	ID   string
	Item NewItem
}

type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Subscription pairs a user with a feed they follow.
type Subscription struct {
	UserID string
	FeedID string
}

// SubscribedItem pairs a user with an item visible to them. Seen starts
// false and flips once the user has read the item.
type SubscribedItem struct {
	UserID string
	ItemID string
	Seen   bool
}

// CompositeItem is a read-side projection of an item together with one
// user's seen flag. It is a view, never stored.
type CompositeItem struct {
	ID          string
	Title       string
	Link        string
	Summary     string
	Content     string
	PublishedAt *time.Time
	UpdatedAt   *time.Time
	Seen        bool
}

// SubscribedFeed is a read-side projection of a channel for one user,
// with the count of their unseen items.
type SubscribedFeed struct {
	Channel
	UnseenCount int
}

// FeedSubscribers is one row of the per-tick snapshot the scheduler
// dispatches from: a feed plus the users currently subscribed to it.
type FeedSubscribers struct {
	FeedID      string
	FeedURL     string
	Subscribers []string
}
