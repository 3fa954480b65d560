package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fedorten/resursGraf/internal/api"
	"github.com/fedorten/resursGraf/internal/catalog"
	"github.com/fedorten/resursGraf/internal/config"
	"github.com/fedorten/resursGraf/internal/db"
	"github.com/fedorten/resursGraf/internal/external"
	"github.com/fedorten/resursGraf/internal/httputil"
	"github.com/fedorten/resursGraf/internal/logging"
	"github.com/fedorten/resursGraf/internal/models"
	"github.com/fedorten/resursGraf/internal/notifications"
	"github.com/fedorten/resursGraf/internal/prices"
	"github.com/fedorten/resursGraf/internal/repository"
	"github.com/fedorten/resursGraf/internal/scheduler"
	"github.com/fedorten/resursGraf/internal/store"
	"github.com/fedorten/resursGraf/internal/web"
	"github.com/sirupsen/logrus"
)

const banner = `
╔══════════════════════════════════════╗
║        resursGraf price service      ║
║                                      ║
╚══════════════════════════════════════╝
`

type historyStore interface {
	Load(ctx context.Context, resource string) (*models.History, error)
	Save(ctx context.Context, h *models.History) error
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Catalog
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if err := cat.LoadOverrides(cfg.CatalogFile); err != nil {
			logger.Fatalf("catalog overrides: %v", err)
		}
		logger.Infof("catalog overrides loaded from %s", cfg.CatalogFile)
	}

	// History store
	st, err := openStore(ctx, cfg, logging.Component(logger, "STORE"))
	if err != nil {
		logger.Fatalf("open %s store: %v", cfg.HistoryStore, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}()

	// Upstreams
	retry := httputil.DefaultRetry
	retry.MaxAttempts = cfg.UpstreamRetryAttempts

	yahoo := external.NewYahooClient(external.YahooOptions{
		Options: external.Options{
			Hosts:   cfg.YahooHosts,
			Timeout: time.Duration(cfg.YahooTimeoutSeconds) * time.Second,
			Retry:   retry,
			Logger:  logging.Component(logger, "YAHOO"),
		},
		Range:    cfg.YahooRange,
		Interval: cfg.YahooInterval,
	})
	frankfurter := external.NewFrankfurterClient(external.FrankfurterOptions{
		Options: external.Options{
			Hosts:   cfg.FrankfurterHosts,
			Timeout: time.Duration(cfg.FrankfurterTimeoutSeconds) * time.Second,
			Retry:   retry,
			Logger:  logging.Component(logger, "FRANKFURTER"),
		},
		Start: cfg.RubHistoryStart,
	})

	svc := prices.NewService(cat, st, []prices.Fetcher{yahoo, frankfurter}, prices.Options{
		TTL:    cfg.CacheTTL(),
		Logger: logging.Component(logger, "PRICES"),
	})

	notify := notifications.NewSender(cfg.WebhookURL, cfg.NotifyName, logging.Component(logger, "NOTIFY"))

	pages, err := web.NewRenderer()
	if err != nil {
		logger.Fatalf("templates: %v", err)
	}

	// 1. HTTP server
	srv := api.NewServer(svc, cat, st, pages, api.Config{
		Port:       cfg.Port,
		CORSOrigin: cfg.CORSAllowOrigin,
	}, logging.Component(logger, "API"))
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// 2. Background refresh
	var refresher *scheduler.RefreshScheduler
	if cfg.RefreshCron != "" {
		refresher = scheduler.NewRefreshScheduler(svc, notify, scheduler.RefreshConfig{
			Spec:       cfg.RefreshCron,
			RunOnStart: cfg.RefreshOnStart,
		}, logging.Component(logger, "SCHEDULER"))
		if err := refresher.Start(); err != nil {
			logger.Fatalf("scheduler: %v", err)
		}
	} else {
		logging.Component(logger, "SCHEDULER").Info("skipped - REFRESH_CRON not set")
	}

	logger.Info("all services started")

	<-ctx.Done()
	logger.Info("shutting down gracefully...")

	if refresher != nil {
		refresher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown error: %v", err)
	}
	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (historyStore, error) {
	switch cfg.HistoryStore {
	case config.StoreFile:
		log.Infof("file store at %s", cfg.HistoryDir)
		return store.NewFile(cfg.HistoryDir)

	case config.StoreSQLite:
		log.Infof("sqlite store at %s", cfg.SQLitePath)
		return store.NewSQLite(cfg.SQLitePath)

	case config.StorePostgres:
		log.Infof("connecting to %s:%d/%s ...", cfg.DBHost, cfg.DBPort, cfg.DBName)
		pool, err := db.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		if err := db.TestConnection(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewHistoryRepo(pool), nil

	case config.StoreRedis:
		log.Infof("redis store at %s", cfg.RedisAddr)
		return store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

	default:
		log.Info("in-memory store")
		return store.NewMemory(), nil
	}
}
