package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"feedhub/adapter/feed"
	"feedhub/adapter/postgres"
	"feedhub/adapter/sqlite"
	"feedhub/app"
	"feedhub/cli/control"
	"feedhub/domain"
	"feedhub/internal/config"
	"feedhub/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "--help", "-h", "help":
		printHelp()
		return
	case "fetch":
		err = cmdFetch(args)
	case "subscribe":
		err = cmdSubscribe(args)
	case "feeds":
		err = cmdFeeds(args)
	case "items":
		err = cmdItems(args)
	case "seen":
		err = cmdSeen(args)
	case "set-interval":
		err = cmdSetInterval(args)
	case "set-workers":
		err = cmdSetWorkers(args)
	default:
		fmt.Printf("unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`Usage:
  feedhub COMMAND [OPTIONS]

Common Commands:
   fetch           start the background process that polls subscribed feeds
   subscribe       subscribe a user to a feed URL (--url, --user)
   feeds           list feeds, or a user's subscribed feeds (--user)
   items           show a user's items (--user, [--feed-url], [--num])
   seen            mark an item as seen (--user, --item)
   set-interval    change the poll interval of the running process
   set-workers     change the worker count of the running process
`)
}

func cmdFetch(args []string) error {
	cfg := config.Load()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	listener, err := control.TryListen(cfg.ControlAddr)
	if err != nil {
		if errors.Is(err, control.ErrAlreadyRunning) {
			fmt.Println("Background process is already running")
		}
		return err
	}
	defer listener.Close()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.Ensure(context.Background()); err != nil {
		return fmt.Errorf("store ensure failed: %w", err)
	}

	svc := app.NewService(store, feed.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchSpacing), feed.NewParser(log), log)
	agg := app.NewAggregator(svc, cfg.DefaultInterval, cfg.DefaultWorkers, log)
	ctrl := control.NewServer(agg, svc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		_ = http.Serve(listener, ctrl)
	}()

	if err := agg.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("The background process for polling feeds has started (interval = %s, workers = %d)\n",
		cfg.DefaultInterval.String(), cfg.DefaultWorkers)

	<-ctx.Done()
	_ = agg.Stop()
	fmt.Println("Graceful shutdown: aggregator stopped")
	return nil
}

func cmdSubscribe(args []string) error {
	fset := flag.NewFlagSet("subscribe", flag.ContinueOnError)
	var url, user string
	var remote bool
	fset.StringVar(&url, "url", "", "feed URL")
	fset.StringVar(&user, "user", "", "user name")
	fset.BoolVar(&remote, "remote", false, "route through the running background process")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(url) == "" || strings.TrimSpace(user) == "" {
		return fmt.Errorf("both --url and --user are required")
	}
	cfg := config.Load()
	if remote {
		return control.NewClient(cfg.ControlAddr).Subscribe(url, user)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.Ensure(context.Background()); err != nil {
		return err
	}
	svc := app.NewService(store, feed.NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchSpacing), feed.NewParser(log), log)
	if err := svc.Subscribe(context.Background(), url, user); err != nil {
		return err
	}
	fmt.Printf("Subscribed %s to %s\n", user, url)
	return nil
}

func cmdFeeds(args []string) error {
	fset := flag.NewFlagSet("feeds", flag.ContinueOnError)
	var user string
	fset.StringVar(&user, "user", "", "show only feeds this user subscribes to")
	if err := fset.Parse(args); err != nil {
		return err
	}
	store, closeStore, err := openReadyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	if user == "" {
		feeds, err := store.ListFeedsWithSubscribers(ctx)
		if err != nil {
			return err
		}
		fmt.Println("# Known Feeds")
		for i, f := range feeds {
			fmt.Printf("%d. %s (%d subscribers)\n", i+1, f.FeedURL, len(f.Subscribers))
		}
		return nil
	}

	u, err := store.EnsureUser(ctx, user)
	if err != nil {
		return err
	}
	feeds, err := store.ListSubscribedFeeds(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Printf("# Feeds for %s\n", user)
	for i, f := range feeds {
		fmt.Printf("%d. %s\n   %s\n   unseen: %d\n", i+1, f.Title, f.FeedLink, f.UnseenCount)
	}
	return nil
}

func cmdItems(args []string) error {
	fset := flag.NewFlagSet("items", flag.ContinueOnError)
	var user, feedURL string
	var num int
	fset.StringVar(&user, "user", "", "user name")
	fset.StringVar(&feedURL, "feed-url", "", "restrict to one feed")
	fset.IntVar(&num, "num", 10, "number of items")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("--user is required")
	}
	store, closeStore, err := openReadyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	u, err := store.EnsureUser(ctx, user)
	if err != nil {
		return err
	}
	var feedID string
	if feedURL != "" {
		feedID, err = store.FindFeedIDByURL(ctx, feedURL)
		if err != nil {
			return err
		}
	}
	items, err := store.ListUserItems(ctx, u.ID, feedID, num)
	if err != nil {
		return err
	}
	for i, it := range items {
		marker := " "
		if it.Seen {
			marker = "*"
		}
		date := ""
		if it.PublishedAt != nil {
			date = it.PublishedAt.Format("2006-01-02")
		}
		fmt.Printf("%d.%s [%s] %s\n   %s\n   id: %s\n\n", i+1, marker, date, it.Title, it.Link, it.ID)
	}
	return nil
}

func cmdSeen(args []string) error {
	fset := flag.NewFlagSet("seen", flag.ContinueOnError)
	var user, item string
	fset.StringVar(&user, "user", "", "user name")
	fset.StringVar(&item, "item", "", "item id")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(user) == "" || strings.TrimSpace(item) == "" {
		return fmt.Errorf("both --user and --item are required")
	}
	store, closeStore, err := openReadyStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	u, err := store.EnsureUser(ctx, user)
	if err != nil {
		return err
	}
	return store.MarkItemSeen(ctx, u.ID, item)
}

func cmdSetInterval(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: feedhub set-interval DURATION (e.g., 2m)")
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	c := control.NewClient(config.Load().ControlAddr)
	old, err := c.SetInterval(d)
	if err != nil {
		return err
	}
	fmt.Printf("Poll interval changed from %s to %s\n", old.String(), d.String())
	return nil
}

func cmdSetWorkers(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: feedhub set-workers COUNT")
	}
	var n int
	if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n <= 0 {
		return fmt.Errorf("invalid workers count: %v", args[0])
	}
	c := control.NewClient(config.Load().ControlAddr)
	old, err := c.SetWorkers(n)
	if err != nil {
		return err
	}
	fmt.Printf("Number of workers changed from %d to %d\n", old, n)
	return nil
}

func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	return logger.New(logger.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
}

func openReadyStore() (domain.Store, func() error, error) {
	cfg := config.Load()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Ensure(context.Background()); err != nil {
		closeStore()
		return nil, nil, err
	}
	return store, closeStore, nil
}

func openStore(cfg config.Config) (domain.Store, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.DriverPostgres:
		db, err := openPG(cfg)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

func openPG(cfg config.Config) (*sql.DB, error) {
	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.PGUser, cfg.PGPassword, cfg.PGHost, cfg.PGPort, cfg.PGDatabase,
	)
	dbConn, err := sql.Open("postgres", pgURL)
	if err != nil {
		return nil, err
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetMaxIdleConns(10)
	dbConn.SetConnMaxLifetime(30 * time.Minute)
	if err := dbConn.Ping(); err != nil {
		return nil, err
	}
	return dbConn, nil
}
