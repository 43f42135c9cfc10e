package control

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeAggregator struct {
	interval time.Duration
	workers  int
}

func (a *fakeAggregator) Start(ctx context.Context) error { return nil }
func (a *fakeAggregator) Stop() error                     { return nil }
func (a *fakeAggregator) SetInterval(d time.Duration)     { a.interval = d }
func (a *fakeAggregator) Resize(workers int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	a.workers = workers
	return nil
}
func (a *fakeAggregator) CurrentInterval() time.Duration { return a.interval }
func (a *fakeAggregator) CurrentWorkers() int            { return a.workers }

type fakeSubscriber struct {
	url, user string
	err       error
}

func (s *fakeSubscriber) Subscribe(ctx context.Context, feedURL, userName string) error {
	s.url, s.user = feedURL, userName
	return s.err
}

func newTestControl(t *testing.T, agg *fakeAggregator, subs *fakeSubscriber) *Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(agg, subs))
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://"))
}

func TestSetIntervalRoundTrip(t *testing.T) {
	agg := &fakeAggregator{interval: 3 * time.Minute, workers: 3}
	c := newTestControl(t, agg, &fakeSubscriber{})

	old, err := c.SetInterval(time.Minute)
	if err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	if old != 3*time.Minute {
		t.Fatalf("expected previous interval back, got %v", old)
	}
	if agg.interval != time.Minute {
		t.Fatalf("interval not applied: %v", agg.interval)
	}
}

func TestSetWorkersRoundTrip(t *testing.T) {
	agg := &fakeAggregator{interval: time.Minute, workers: 3}
	c := newTestControl(t, agg, &fakeSubscriber{})

	old, err := c.SetWorkers(5)
	if err != nil {
		t.Fatalf("SetWorkers: %v", err)
	}
	if old != 3 || agg.workers != 5 {
		t.Fatalf("unexpected state: old=%d workers=%d", old, agg.workers)
	}
	if _, err := c.SetWorkers(0); err == nil {
		t.Fatal("expected server-side validation error")
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	subs := &fakeSubscriber{}
	c := newTestControl(t, &fakeAggregator{}, subs)

	if err := c.Subscribe("https://example.com/rss", "alice"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if subs.url != "https://example.com/rss" || subs.user != "alice" {
		t.Fatalf("wrong arguments forwarded: %q %q", subs.url, subs.user)
	}

	subs.err = errors.New("boom")
	if err := c.Subscribe("https://example.com/rss", "alice"); err == nil {
		t.Fatal("expected subscribe failure to surface")
	}
}

func TestTryListenDetectsRunningInstance(t *testing.T) {
	ln, err := TryListen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("TryListen: %v", err)
	}
	defer ln.Close()
	if _, err := TryListen(ln.Addr().String()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
