// Package postgres implements the persistence gateway on PostgreSQL.
// Ids are assigned by the database (gen_random_uuid) and guid is unique
// per feed, which is what makes re-polling safe to retry.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"feedhub/domain"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB // nil when this instance is bound to a transaction
	q  dbtx
}

func New(db *sql.DB) *Repository { return &Repository{db: db, q: db} }

func (r *Repository) Ensure(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
CREATE TABLE IF NOT EXISTS feeds (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    updated_at TIMESTAMP NOT NULL DEFAULT now(),
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    site_link TEXT NOT NULL,
    feed_link TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    guid TEXT NOT NULL,
    link TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP,
    updated_at TIMESTAMP,
    feed_id UUID NOT NULL REFERENCES feeds(id),
    UNIQUE (feed_id, guid)
);
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at TIMESTAMP NOT NULL DEFAULT now(),
    name TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS subscriptions (
    user_id UUID NOT NULL REFERENCES users(id),
    feed_id UUID NOT NULL REFERENCES feeds(id),
    PRIMARY KEY (user_id, feed_id)
);
CREATE TABLE IF NOT EXISTS subscribed_items (
    user_id UUID NOT NULL REFERENCES users(id),
    item_id UUID NOT NULL REFERENCES items(id),
    seen BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (user_id, item_id)
);
`)
	return err
}

func (r *Repository) InTx(ctx context.Context, fn func(domain.Store) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&Repository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) ListFeedsWithSubscribers(ctx context.Context) ([]domain.FeedSubscribers, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT f.id, f.feed_link,
       COALESCE(array_agg(s.user_id::text) FILTER (WHERE s.user_id IS NOT NULL), '{}')
FROM feeds f
LEFT JOIN subscriptions s ON s.feed_id = f.id
GROUP BY f.id, f.feed_link
ORDER BY f.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FeedSubscribers
	for rows.Next() {
		var f domain.FeedSubscribers
		if err := rows.Scan(&f.FeedID, &f.FeedURL, pq.Array(&f.Subscribers)); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) FindFeedIDByURL(ctx context.Context, url string) (string, error) {
	var id string
	err := r.q.QueryRowContext(ctx, `SELECT id FROM feeds WHERE feed_link = $1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return id, err
}

func (r *Repository) ListItemIDs(ctx context.Context, feedID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id FROM items WHERE feed_id = $1`, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) ListItemRefs(ctx context.Context, feedID string) (map[string]domain.ItemRef, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT guid, id, published_at FROM items WHERE feed_id = $1`, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make(map[string]domain.ItemRef)
	for rows.Next() {
		var (
			guid      string
			ref       domain.ItemRef
			published sql.NullTime
		)
		if err := rows.Scan(&guid, &ref.ID, &published); err != nil {
			return nil, err
		}
		if published.Valid {
			t := published.Time.UTC()
			ref.PublishedAt = &t
		}
		refs[guid] = ref
	}
	return refs, rows.Err()
}

func (r *Repository) InsertChannel(ctx context.Context, ch domain.Channel) (domain.Channel, error) {
	err := r.q.QueryRowContext(ctx, `
INSERT INTO feeds (title, description, site_link, feed_link)
VALUES ($1, $2, $3, $4)
RETURNING id, updated_at`,
		ch.Title, ch.Description, ch.SiteLink, ch.FeedLink,
	).Scan(&ch.ID, &ch.UpdatedAt)
	return ch, err
}

func (r *Repository) InsertItems(ctx context.Context, feedID string, items []domain.NewItem) ([]domain.Item, error) {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		var id string
		err := r.q.QueryRowContext(ctx, `
INSERT INTO items (guid, link, title, summary, content, published_at, updated_at, feed_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
			it.GUID, it.Link, it.Title, it.Summary, it.Content,
			nullTime(it.PublishedAt), nullTime(it.UpdatedAt), feedID,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Item{
			ID:          id,
			GUID:        it.GUID,
			Link:        it.Link,
			Title:       it.Title,
			Summary:     it.Summary,
			Content:     it.Content,
			PublishedAt: it.PublishedAt,
			UpdatedAt:   it.UpdatedAt,
			FeedID:      feedID,
		})
	}
	return out, nil
}

func (r *Repository) UpdateItem(ctx context.Context, id string, item domain.NewItem) error {
	_, err := r.q.ExecContext(ctx, `
UPDATE items
SET link = $2, title = $3, summary = $4, content = $5, published_at = $6, updated_at = $7
WHERE id = $1`,
		id, item.Link, item.Title, item.Summary, item.Content,
		nullTime(item.PublishedAt), nullTime(item.UpdatedAt))
	return err
}

func (r *Repository) EnsureUser(ctx context.Context, name string) (domain.User, error) {
	if _, err := r.q.ExecContext(ctx, `INSERT INTO users (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
		return domain.User{}, err
	}
	var u domain.User
	err := r.q.QueryRowContext(ctx, `SELECT id, name, created_at FROM users WHERE name = $1`, name).
		Scan(&u.ID, &u.Name, &u.CreatedAt)
	return u, err
}

func (r *Repository) CreateSubscription(ctx context.Context, userID, feedID string) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO subscriptions (user_id, feed_id) VALUES ($1, $2)
ON CONFLICT (user_id, feed_id) DO NOTHING`, userID, feedID)
	return err
}

func (r *Repository) InsertSubscribedItems(ctx context.Context, items []domain.SubscribedItem) error {
	for _, si := range items {
		_, err := r.q.ExecContext(ctx, `
INSERT INTO subscribed_items (user_id, item_id, seen) VALUES ($1, $2, $3)
ON CONFLICT (user_id, item_id) DO NOTHING`, si.UserID, si.ItemID, si.Seen)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ListUserItems(ctx context.Context, userID, feedID string, limit int) ([]domain.CompositeItem, error) {
	q := `
SELECT i.id, i.title, i.link, i.summary, i.content, i.published_at, i.updated_at, si.seen
FROM items i
JOIN subscribed_items si ON si.item_id = i.id
WHERE si.user_id = $1 AND ($2 = '' OR i.feed_id::text = $2)
ORDER BY i.published_at DESC NULLS LAST`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, q+` LIMIT $3`, userID, feedID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, q, userID, feedID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CompositeItem
	for rows.Next() {
		var (
			ci                 domain.CompositeItem
			published, updated sql.NullTime
		)
		if err := rows.Scan(&ci.ID, &ci.Title, &ci.Link, &ci.Summary, &ci.Content, &published, &updated, &ci.Seen); err != nil {
			return nil, err
		}
		ci.PublishedAt = timePtr(published)
		ci.UpdatedAt = timePtr(updated)
		out = append(out, ci)
	}
	return out, rows.Err()
}

func (r *Repository) ListSubscribedFeeds(ctx context.Context, userID string) ([]domain.SubscribedFeed, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT f.id, f.title, f.description, f.site_link, f.feed_link, f.updated_at,
       (SELECT count(*) FROM subscribed_items si
        JOIN items i ON i.id = si.item_id
        WHERE si.user_id = s.user_id AND i.feed_id = f.id AND NOT si.seen)
FROM feeds f
JOIN subscriptions s ON s.feed_id = f.id
WHERE s.user_id = $1
ORDER BY f.title`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.SubscribedFeed
	for rows.Next() {
		var sf domain.SubscribedFeed
		if err := rows.Scan(&sf.ID, &sf.Title, &sf.Description, &sf.SiteLink, &sf.FeedLink, &sf.UpdatedAt, &sf.UnseenCount); err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

func (r *Repository) MarkItemSeen(ctx context.Context, userID, itemID string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE subscribed_items SET seen = TRUE WHERE user_id = $1 AND item_id = $2`, userID, itemID)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	u := t.Time.UTC()
	return &u
}
