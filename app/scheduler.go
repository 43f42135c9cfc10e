package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"feedhub/domain"
)

// AggregatorService drives the polling loop: a ticker enumerates the
// feed/subscriber snapshot and hands one job per feed to a bounded worker
// pool. Interval and pool size are adjustable while running.
type AggregatorService struct {
	svc *Service
	log *zap.SugaredLogger

	mu             sync.Mutex
	interval       time.Duration
	workers        int
	jobs           chan domain.FeedSubscribers
	ctx            context.Context
	cancel         context.CancelFunc
	tickerStopChan chan struct{}
	started        bool
	workerCancels  []context.CancelFunc

	// flight serializes pipeline runs per feed id, so two overlapping
	// ticks cannot both see an empty prior snapshot and double-insert.
	flight singleflight.Group
}

func NewAggregator(svc *Service, interval time.Duration, workers int, log *zap.SugaredLogger) *AggregatorService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AggregatorService{svc: svc, interval: interval, workers: workers, log: log}
}

func (a *AggregatorService) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("aggregator already started")
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	if a.jobs == nil {
		a.jobs = make(chan domain.FeedSubscribers)
	}
	a.tickerStopChan = make(chan struct{})
	a.workerCancels = nil
	startWorkersCount(a, a.workers)
	go a.loop()
	a.started = true
	return nil
}

func (a *AggregatorService) Stop() error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	cancel := a.cancel
	stopCh := a.tickerStopChan
	cancels := append([]context.CancelFunc(nil), a.workerCancels...)
	a.started = false
	a.mu.Unlock()

	close(stopCh)
	cancel()
	for _, c := range cancels {
		c()
	}
	return nil
}

func (a *AggregatorService) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		a.interval = d
		return
	}
	// signal the loop to restart its ticker with the new interval
	close(a.tickerStopChan)
	a.tickerStopChan = make(chan struct{})
	a.interval = d
}

func (a *AggregatorService) Resize(workers int) error {
	if workers <= 0 {
		return errors.New("workers must be > 0")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.workers == workers {
		return nil
	}
	if workers > a.workers {
		startWorkersCount(a, workers-a.workers)
	} else {
		delta := a.workers - workers
		for i := 0; i < delta && len(a.workerCancels) > 0; i++ {
			idx := len(a.workerCancels) - 1
			c := a.workerCancels[idx]
			a.workerCancels = a.workerCancels[:idx]
			c()
		}
	}
	a.workers = workers
	return nil
}

func (a *AggregatorService) CurrentInterval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

func (a *AggregatorService) CurrentWorkers() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.workers
}

func (a *AggregatorService) loop() {
	for {
		a.mu.Lock()
		interval := a.interval
		stopCh := a.tickerStopChan
		a.mu.Unlock()

		ticker := time.NewTicker(interval)
		select {
		case <-a.ctx.Done():
			ticker.Stop()
			return
		case <-stopCh:
			ticker.Stop()
			continue
		case <-ticker.C:
		}

		snapshot, err := a.svc.Snapshot(a.ctx)
		if err != nil {
			a.log.Warnw("could not read feed snapshot", "err", err)
			continue
		}
		if !a.dispatch(snapshot) {
			return
		}
	}
}

// dispatch queues one job per feed from a fixed snapshot. It only
// enumerates and hands off; pipeline completion is the workers' business.
// Returns false when the aggregator context ended mid-dispatch.
func (a *AggregatorService) dispatch(snapshot []domain.FeedSubscribers) bool {
	a.mu.Lock()
	jobs := a.jobs
	a.mu.Unlock()
	for _, f := range snapshot {
		select {
		case jobs <- f:
		case <-a.ctx.Done():
			return false
		}
	}
	return true
}

func startWorkersCount(a *AggregatorService, count int) {
	for i := 0; i < count; i++ {
		wctx, cancel := context.WithCancel(a.ctx)
		a.workerCancels = append(a.workerCancels, cancel)
		go a.worker(wctx)
	}
}

func (a *AggregatorService) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-a.jobs:
			if !ok {
				return
			}
			a.runFeed(ctx, f)
		}
	}
}

// runFeed executes one pipeline pass under the per-feed single-flight
// guard. A failing feed is logged and isolated; it never affects sibling
// feeds or the next tick.
func (a *AggregatorService) runFeed(ctx context.Context, f domain.FeedSubscribers) {
	n, err, _ := a.flight.Do(f.FeedID, func() (interface{}, error) {
		return a.svc.PollFeed(ctx, f)
	})
	if err != nil {
		a.log.Warnw("feed pipeline failed", "feed", f.FeedURL, "err", err)
		return
	}
	if count, _ := n.(int); count > 0 {
		a.log.Infow("found new items", "feed", f.FeedURL, "count", count)
	}
}
