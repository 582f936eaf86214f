// Command stockpulse-server runs the stock lookup dashboard API: AI-backed
// symbol search, per-user watchlists, search history, archived news, and a
// live simulated tick stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"stockpulse/internal/config"
	"stockpulse/internal/gemini"
	"stockpulse/internal/history"
	"stockpulse/internal/httpapi"
	"stockpulse/internal/news"
	"stockpulse/internal/sim"
	"stockpulse/internal/util"
	"stockpulse/internal/watchlist"
)

func main() {
	// Best-effort .env loading before config reads the environment.
	_ = godotenv.Load()

	cfgPath := "config/stockpulse.yaml"
	if p := os.Getenv("STOCKPULSE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Gemini client. A missing credential fails here, before any call is
	// attempted.
	var clientOpts []gemini.Option
	if cfg.Gemini.BaseURL != "" {
		clientOpts = append(clientOpts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	if cfg.Gemini.Model != "" {
		clientOpts = append(clientOpts, gemini.WithModel(cfg.Gemini.Model))
	}
	if cfg.Gemini.RequestsPerMin > 0 {
		clientOpts = append(clientOpts, gemini.WithRequestsPerMin(cfg.Gemini.RequestsPerMin))
	}
	client, err := gemini.NewClient(cfg.Gemini.APIKey, clientOpts...)
	if err != nil {
		return err
	}

	var searcher gemini.Searcher = client
	if cfg.Search.CacheTTLSeconds > 0 {
		searcher = &gemini.Cache{
			S:   client,
			TTL: time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
		}
	}

	// Stores.
	store, err := watchlist.Open(cfg.Storage.WatchlistPath)
	if err != nil {
		return err
	}
	defer store.Close()

	searches, err := history.Open(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer searches.Close()

	archive := news.NewArchive(cfg.Storage.DataDir)

	// Session resumes the previously signed-in user, if any.
	session := watchlist.NewSession(store)
	if err := session.Resume(); err != nil {
		return fmt.Errorf("resuming session: %w", err)
	}
	if user := session.User(); user != nil {
		logger.Info("session resumed", "username", user.Username)
	}

	simulator := sim.NewSimulator(time.Duration(cfg.Simulate.IntervalMS)*time.Millisecond, logger)
	defer simulator.Stop()

	api := httpapi.NewServer(searcher, session, simulator, searches, archive, cfg.Simulate.Enabled, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("stockpulse-server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
