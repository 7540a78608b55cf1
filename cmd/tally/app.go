package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MikeSquared-Agency/Tally/internal/catalog"
	"github.com/MikeSquared-Agency/Tally/internal/config"
	"github.com/MikeSquared-Agency/Tally/internal/hermes"
	"github.com/MikeSquared-Agency/Tally/internal/recalc"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
	"github.com/MikeSquared-Agency/Tally/internal/store"
)

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store.Store
	hermes   hermes.Client
	catalogs *catalog.Provider
	engine   *scoring.Engine
	recalc   *recalc.Coordinator
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
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
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "sqlite":
		return store.NewSQLiteStore(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// setup loads configuration and wires every component. When withEvents is
// false or NATS is unreachable, events are dropped.
func setup(ctx context.Context, configPath string, withEvents bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	// A bad catalog is fatal: nothing may be scored against it.
	catalogs, err := catalog.NewProvider(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	b := catalogs.Current()
	logger.Info("catalog loaded", "version", b.Version, "sections", b.Weights.Len(), "questions", b.Questions.Len())

	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	var hermesClient hermes.Client = hermes.NopClient{}
	if withEvents && cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			logger.Info("connected to hermes")
		}
	}

	engine := scoring.NewEngine(catalogs, cfg.Scoring.IntegrityTolerance, logger)
	coordinator := recalc.New(db, engine, hermesClient, recalc.Options{
		Workers:      cfg.Recalc.Workers,
		StoreTimeout: cfg.StoreTimeout(),
		OpsPerSecond: cfg.Recalc.OpsPerSecond,
	}, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    db,
		hermes:   hermesClient,
		catalogs: catalogs,
		engine:   engine,
		recalc:   coordinator,
	}, nil
}

func (a *app) Close() {
	a.hermes.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", "error", err)
	}
}
