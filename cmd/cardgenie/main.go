package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/rishabhcli/cardgenie/internal/config"
	"github.com/rishabhcli/cardgenie/internal/session"
	"github.com/rishabhcli/cardgenie/internal/sm2"
	"github.com/rishabhcli/cardgenie/internal/stats"
	"github.com/rishabhcli/cardgenie/internal/storage"
	"github.com/rishabhcli/cardgenie/internal/syncer"
	"github.com/rishabhcli/cardgenie/internal/web"
)

func main() {
	defaults := config.Default()

	flags := pflag.NewFlagSet("cardgenie", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	flags.String("db", defaults.DBPath, "path to the SQLite database")
	flags.String("listen", defaults.Listen, "HTTP listen address for --serve")
	addSource := flags.String("add-source", "", "register a deck source (directory or git URL)")
	runSync := flags.Bool("sync", false, "reconcile all deck sources")
	serve := flags.Bool("serve", false, "start the review API server")
	showStats := flags.Bool("stats", false, "print collection statistics")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	initLogging(cfg.Log)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open store", "db", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	ran := false

	if *addSource != "" {
		ran = true
		kind := syncer.DetectKind(*addSource)
		id, err := store.InsertSource(*addSource, kind)
		if err != nil {
			slog.Error("add source", "path", *addSource, "error", err)
			os.Exit(1)
		}
		slog.Info("source added", "id", id, "kind", kind, "path", *addSource)
	}

	if *runSync {
		ran = true
		if err := syncer.EnsureReposDir(cfg.ReposDir); err != nil {
			slog.Error("prepare repos dir", "error", err)
			os.Exit(1)
		}
		if err := syncer.New(store, cfg.ReposDir).Run(ctx); err != nil {
			slog.Error("sync", "error", err)
			os.Exit(1)
		}
	}

	if *showStats {
		ran = true
		if err := printStats(store); err != nil {
			slog.Error("stats", "error", err)
			os.Exit(1)
		}
	}

	if *serve {
		ran = true
		srv := web.NewServer(store, cfg.Session)
		slog.Info("serving review API", "addr", cfg.Listen)
		if err := http.ListenAndServe(cfg.Listen, srv); err != nil {
			slog.Error("serve", "error", err)
			os.Exit(1)
		}
	}

	if !ran {
		flags.Usage()
		os.Exit(2)
	}
}

func printStats(store *storage.Store) error {
	entries, err := store.ListEntries()
	if err != nil {
		return err
	}
	records := make([]sm2.MemoryRecord, len(entries))
	sessionEntries := make([]session.Entry, len(entries))
	for i, e := range entries {
		records[i] = e.Record
		sessionEntries[i] = session.Entry{CardID: e.Card.ID, Record: e.Record}
	}
	due := len(session.DueQueue(sessionEntries, time.Now()))

	fmt.Printf("cards:          %d\n", len(records))
	fmt.Printf("due now:        %d (~%.1f min)\n", due, stats.EstimateStudyMinutes(due))
	fmt.Printf("total reviews:  %d\n", stats.TotalReviews(records))
	fmt.Printf("success rate:   %.0f%%\n", stats.SetSuccessRate(records)*100)
	fmt.Printf("average ease:   %.2f\n", stats.AverageEase(records))
	return nil
}

func initLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
