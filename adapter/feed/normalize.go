package feed

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"feedhub/domain"
)

// Parser implements domain.FeedParser: sniff the format, then normalize
// into the canonical model. Items missing a guid, title, or link are
// logged and skipped; the rest of the feed still goes through.
type Parser struct {
	log *zap.SugaredLogger
}

func NewParser(log *zap.SugaredLogger) *Parser {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Parser{log: log}
}

func (p *Parser) Parse(data []byte, feedURL string) (domain.Channel, []domain.NewItem, error) {
	parsed, err := Identify(data)
	if err != nil {
		return domain.Channel{}, nil, err
	}
	return p.normalize(parsed, feedURL)
}

func (p *Parser) normalize(parsed Parsed, feedURL string) (domain.Channel, []domain.NewItem, error) {
	var (
		ch    domain.Channel
		items []domain.NewItem
	)
	switch {
	case parsed.RSS != nil:
		ch, items = p.fromRSS(parsed.RSS, feedURL)
	case parsed.Atom != nil:
		ch, items = p.fromAtom(parsed.Atom, feedURL)
	default:
		return domain.Channel{}, nil, fmt.Errorf("%w: empty parse result", domain.ErrNormalize)
	}
	if ch.Title == "" && len(items) == 0 {
		return domain.Channel{}, nil, fmt.Errorf("%w: %s: no channel metadata and no usable items", domain.ErrNormalize, feedURL)
	}
	return ch, items, nil
}

func (p *Parser) fromRSS(doc *rssDocument, feedURL string) (domain.Channel, []domain.NewItem) {
	ch := domain.Channel{
		Title:       strings.TrimSpace(doc.Channel.Title),
		Description: strings.TrimSpace(doc.Channel.Description),
		SiteLink:    strings.TrimSpace(doc.Channel.Link),
		FeedLink:    feedURL,
		UpdatedAt:   time.Now().UTC(),
	}
	var items []domain.NewItem
	for _, it := range doc.Channel.Items {
		published := parseDate(it.PubDate)
		item := domain.NewItem{
			GUID:        strings.TrimSpace(it.GUID),
			Link:        strings.TrimSpace(it.Link),
			Title:       strings.TrimSpace(it.Title),
			Summary:     strings.TrimSpace(it.Description),
			Content:     strings.TrimSpace(it.Content),
			PublishedAt: published,
			UpdatedAt:   published,
		}
		if !usable(item) {
			p.log.Warnw("skipping malformed rss item", "feed", feedURL, "guid", item.GUID, "link", item.Link)
			continue
		}
		items = append(items, item)
	}
	return ch, items
}

func (p *Parser) fromAtom(doc *atomDocument, feedURL string) (domain.Channel, []domain.NewItem) {
	ch := domain.Channel{
		Title:       strings.TrimSpace(doc.Title),
		Description: strings.TrimSpace(doc.Subtitle),
		SiteLink:    firstHref(doc.Links),
		FeedLink:    feedURL,
		UpdatedAt:   time.Now().UTC(),
	}
	var items []domain.NewItem
	for _, e := range doc.Entries {
		item := domain.NewItem{
			GUID:        strings.TrimSpace(e.ID),
			Link:        firstHref(e.Links),
			Title:       strings.TrimSpace(e.Title),
			Summary:     strings.TrimSpace(e.Summary),
			Content:     strings.TrimSpace(e.Content),
			PublishedAt: parseDate(e.Published),
			UpdatedAt:   parseDate(e.Updated),
		}
		if !usable(item) {
			p.log.Warnw("skipping malformed atom entry", "feed", feedURL, "guid", item.GUID, "link", item.Link)
			continue
		}
		items = append(items, item)
	}
	return ch, items
}

// usable reports whether the item carries every required field.
func usable(it domain.NewItem) bool {
	return it.GUID != "" && it.Title != "" && it.Link != ""
}

func firstHref(links []atomLink) string {
	if len(links) == 0 {
		return ""
	}
	return strings.TrimSpace(links[0].Href)
}

// parseDate tries the RFC 2822 shapes feeds actually emit, then falls back
// to ISO-8601. An unparseable date yields nil, not an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		u := t.UTC()
		return &u
	}
	return nil
}
