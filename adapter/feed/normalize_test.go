package feed

import (
	"errors"
	"testing"
	"time"

	"feedhub/domain"
)

func TestParseRSSMapping(t *testing.T) {
	p := NewParser(nil)
	ch, items, err := p.Parse([]byte(rssSample), "https://example.com/rss")
	if err != nil {
		t.Fatalf("Parse rss error: %v", err)
	}
	if ch.Title != "Sample RSS" || ch.Description != "Sample description" {
		t.Fatalf("unexpected channel: %+v", ch)
	}
	if ch.SiteLink != "https://example.com" {
		t.Fatalf("site link should come from channel link, got %q", ch.SiteLink)
	}
	if ch.FeedLink != "https://example.com/rss" {
		t.Fatalf("feed link should be the polled URL, got %q", ch.FeedLink)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.GUID != "g1" || it.Title != "Item One" || it.Link != "https://example.com/1" {
		t.Fatalf("unexpected item: %+v", it)
	}
	if it.Summary != "First item" {
		t.Fatalf("summary should come from item description, got %q", it.Summary)
	}
	want := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC)
	if it.PublishedAt == nil || !it.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published_at: %v", it.PublishedAt)
	}
	if it.UpdatedAt == nil || !it.UpdatedAt.Equal(want) {
		t.Fatalf("rss updated_at should equal published_at, got %v", it.UpdatedAt)
	}
}

func TestParseAtomMapping(t *testing.T) {
	p := NewParser(nil)
	ch, items, err := p.Parse([]byte(atomSample), "https://example.com/atom")
	if err != nil {
		t.Fatalf("Parse atom error: %v", err)
	}
	if ch.Title != "Atom Feed" || ch.Description != "Atom subtitle" {
		t.Fatalf("unexpected channel: %+v", ch)
	}
	if ch.SiteLink != "https://example.com" {
		t.Fatalf("site link should come from the first feed link href, got %q", ch.SiteLink)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.GUID != "e1" || it.Link != "https://example.com/entry" || it.Summary != "Entry summary" {
		t.Fatalf("unexpected item: %+v", it)
	}
	wantPub := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	wantUpd := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	if it.PublishedAt == nil || !it.PublishedAt.Equal(wantPub) {
		t.Fatalf("unexpected published_at: %v", it.PublishedAt)
	}
	if it.UpdatedAt == nil || !it.UpdatedAt.Equal(wantUpd) {
		t.Fatalf("unexpected updated_at: %v", it.UpdatedAt)
	}
}

func TestParseSkipsMalformedItems(t *testing.T) {
	body := `<rss version="2.0">
  <channel>
    <title>Mixed</title>
    <link>https://example.com</link>
    <item>
      <guid>ok</guid>
      <title>Good Item</title>
      <link>https://example.com/ok</link>
    </item>
    <item>
      <title>No guid or link</title>
    </item>
    <item>
      <guid>no-title</guid>
      <link>https://example.com/no-title</link>
    </item>
  </channel>
</rss>`
	p := NewParser(nil)
	_, items, err := p.Parse([]byte(body), "https://example.com/rss")
	if err != nil {
		t.Fatalf("malformed items must not abort the feed: %v", err)
	}
	if len(items) != 1 || items[0].GUID != "ok" {
		t.Fatalf("expected only the well-formed item, got %+v", items)
	}
}

func TestParseEmptyDocumentYieldsNormalizeError(t *testing.T) {
	body := `<rss version="2.0"><channel></channel></rss>`
	p := NewParser(nil)
	if _, _, err := p.Parse([]byte(body), "https://example.com/rss"); !errors.Is(err, domain.ErrNormalize) {
		t.Fatalf("expected ErrNormalize, got %v", err)
	}
}

func TestParseDateFallbacks(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 -0700", timeAt(2006, 1, 2, 22, 4, 5)},
		{"Mon, 02 Jan 2006 15:04:05 UTC", timeAt(2006, 1, 2, 15, 4, 5)},
		{"2024-01-02T15:04:05Z", timeAt(2024, 1, 2, 15, 4, 5)},
		{"not a date", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := parseDate(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("parseDate(%q) = %v, want nil", tc.in, got)
		case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
			t.Errorf("parseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func timeAt(y int, m time.Month, d, hh, mm, ss int) *time.Time {
	t := time.Date(y, m, d, hh, mm, ss, 0, time.UTC)
	return &t
}
