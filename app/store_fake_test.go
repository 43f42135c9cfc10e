package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"feedhub/domain"
)

// fakeStore is an in-memory domain.Store for pipeline tests. InTx applies
// fn directly; transactional rollback is the real adapters' business.
type fakeStore struct {
	mu        sync.Mutex
	seq       int
	channels  map[string]domain.Channel // feed id -> channel
	feedByURL map[string]string
	items     map[string][]domain.Item // feed id -> items
	users     map[string]domain.User   // name -> user
	subs      map[string][]string      // feed id -> user ids
	subItems  []domain.SubscribedItem
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		channels:  make(map[string]domain.Channel),
		feedByURL: make(map[string]string),
		items:     make(map[string][]domain.Item),
		users:     make(map[string]domain.User),
		subs:      make(map[string][]string),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// seedFeed installs a channel with subscribers, bypassing the pipeline.
func (s *fakeStore) seedFeed(url string, subscribers ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("feed")
	s.channels[id] = domain.Channel{ID: id, FeedLink: url}
	s.feedByURL[url] = id
	s.subs[id] = subscribers
	return id
}

func (s *fakeStore) seedItem(feedID, guid string, published *time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("item")
	s.items[feedID] = append(s.items[feedID], domain.Item{
		ID: id, GUID: guid, Title: guid, Link: "https://example.com/" + guid,
		PublishedAt: published, FeedID: feedID,
	})
	return id
}

func (s *fakeStore) rowsFor(userID string) []domain.SubscribedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubscribedItem
	for _, si := range s.subItems {
		if si.UserID == userID {
			out = append(out, si)
		}
	}
	return out
}

func (s *fakeStore) Ensure(ctx context.Context) error { return nil }

func (s *fakeStore) InTx(ctx context.Context, fn func(domain.Store) error) error { return fn(s) }

func (s *fakeStore) ListFeedsWithSubscribers(ctx context.Context) ([]domain.FeedSubscribers, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FeedSubscribers
	for id, ch := range s.channels {
		out = append(out, domain.FeedSubscribers{FeedID: id, FeedURL: ch.FeedLink, Subscribers: s.subs[id]})
	}
	return out, nil
}

func (s *fakeStore) FindFeedIDByURL(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.feedByURL[url]; ok {
		return id, nil
	}
	return "", domain.ErrNotFound
}

func (s *fakeStore) ListItemIDs(ctx context.Context, feedID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, it := range s.items[feedID] {
		out = append(out, it.ID)
	}
	return out, nil
}

func (s *fakeStore) ListItemRefs(ctx context.Context, feedID string) (map[string]domain.ItemRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make(map[string]domain.ItemRef)
	for _, it := range s.items[feedID] {
		refs[it.GUID] = domain.ItemRef{ID: it.ID, PublishedAt: it.PublishedAt}
	}
	return refs, nil
}

func (s *fakeStore) InsertChannel(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch.ID = s.nextID("feed")
	s.channels[ch.ID] = ch
	s.feedByURL[ch.FeedLink] = ch.ID
	return ch, nil
}

func (s *fakeStore) InsertItems(ctx context.Context, feedID string, items []domain.NewItem) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		stored := domain.Item{
			ID: s.nextID("item"), GUID: it.GUID, Link: it.Link, Title: it.Title,
			Summary: it.Summary, Content: it.Content,
			PublishedAt: it.PublishedAt, UpdatedAt: it.UpdatedAt, FeedID: feedID,
		}
		s.items[feedID] = append(s.items[feedID], stored)
		out = append(out, stored)
	}
	return out, nil
}

func (s *fakeStore) UpdateItem(ctx context.Context, id string, item domain.NewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for feedID, items := range s.items {
		for i, existing := range items {
			if existing.ID == id {
				s.items[feedID][i] = domain.Item{
					ID: id, GUID: existing.GUID, Link: item.Link, Title: item.Title,
					Summary: item.Summary, Content: item.Content,
					PublishedAt: item.PublishedAt, UpdatedAt: item.UpdatedAt, FeedID: feedID,
				}
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (s *fakeStore) EnsureUser(ctx context.Context, name string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[name]; ok {
		return u, nil
	}
	u := domain.User{ID: s.nextID("user"), Name: name, CreatedAt: time.Now()}
	s.users[name] = u
	return u, nil
}

func (s *fakeStore) CreateSubscription(ctx context.Context, userID, feedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.subs[feedID] {
		if existing == userID {
			return nil
		}
	}
	s.subs[feedID] = append(s.subs[feedID], userID)
	return nil
}

func (s *fakeStore) InsertSubscribedItems(ctx context.Context, rows []domain.SubscribedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subItems = append(s.subItems, rows...)
	return nil
}

func (s *fakeStore) ListUserItems(ctx context.Context, userID, feedID string, limit int) ([]domain.CompositeItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CompositeItem
	for _, si := range s.subItems {
		if si.UserID != userID {
			continue
		}
		for fid, items := range s.items {
			if feedID != "" && fid != feedID {
				continue
			}
			for _, it := range items {
				if it.ID == si.ItemID {
					out = append(out, domain.CompositeItem{
						ID: it.ID, Title: it.Title, Link: it.Link,
						Summary: it.Summary, Content: it.Content,
						PublishedAt: it.PublishedAt, UpdatedAt: it.UpdatedAt,
						Seen: si.Seen,
					})
				}
			}
		}
	}
	return out, nil
}

func (s *fakeStore) ListSubscribedFeeds(ctx context.Context, userID string) ([]domain.SubscribedFeed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubscribedFeed
	for feedID, users := range s.subs {
		for _, u := range users {
			if u == userID {
				out = append(out, domain.SubscribedFeed{Channel: s.channels[feedID]})
			}
		}
	}
	return out, nil
}

func (s *fakeStore) MarkItemSeen(ctx context.Context, userID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, si := range s.subItems {
		if si.UserID == userID && si.ItemID == itemID {
			s.subItems[i].Seen = true
		}
	}
	return nil
}

// fakeFetcher serves canned bodies and counts calls.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	delay  time.Duration
	calls  int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{bodies: make(map[string][]byte)}
}

func (f *fakeFetcher) set(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = []byte(body)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	body, ok := f.bodies[url]
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: no canned response", domain.ErrFetch, url)
	}
	return body, nil
}
