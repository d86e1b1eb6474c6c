package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jocarsa/jocarsa-lavender/internal/config"
	"github.com/jocarsa/jocarsa-lavender/internal/database"
	"github.com/jocarsa/jocarsa-lavender/internal/db"
	"github.com/jocarsa/jocarsa-lavender/internal/logger"
	"github.com/jocarsa/jocarsa-lavender/internal/repository"
	"github.com/jocarsa/jocarsa-lavender/internal/resolver"
	"github.com/jocarsa/jocarsa-lavender/internal/seed"
	"github.com/jocarsa/jocarsa-lavender/internal/service"
)

// store is what every backend provides.
type store interface {
	service.Store
	service.UserStore
	seed.Writer
	Ping(ctx context.Context) error
	Close() error
}

type app struct {
	cfg   *config.Config
	logs  *logger.Manager
	log   zerolog.Logger
	store store
	auth  *service.AuthService
	query *service.QueryService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}
	logs, err := logger.New(cfg.Log, nil)
	if err != nil {
		return nil, err
	}
	log := logs.Logger()

	st, err := openStore(ctx, cfg, logs)
	if err != nil {
		logs.Close()
		return nil, err
	}

	authSvc := service.NewAuthService(st, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	res := resolver.New(resolver.NewSimilarText(cfg.Query.FuzzyThreshold))
	return &app{
		cfg:   cfg,
		logs:  logs,
		log:   log,
		store: st,
		auth:  authSvc,
		query: service.NewQueryService(authSvc, st, res, logs.Component("query")),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logs *logger.Manager) (store, error) {
	log := logs.Component("store")
	switch cfg.Store.Driver {
	case config.DriverOxiDB:
		ox := cfg.Store.OxiDB
		pool, err := db.NewPool(db.PoolConfig{
			Host:      ox.Host,
			Port:      ox.Port,
			Size:      ox.PoolSize,
			Timeout:   ox.Timeout,
			Keepalive: ox.Keepalive,
		}, logs.Component("oxidb"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to OxiDB: %w", err)
		}
		log.Info().Str("host", ox.Host).Int("port", ox.Port).Int("pool_size", ox.PoolSize).Msg("connected to OxiDB")
		st := repository.NewStore(pool)
		// Index builds on large collections can take minutes; queries work
		// without them.
		go func() {
			start := time.Now()
			if err := st.EnsureIndexes(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("index creation failed")
				return
			}
			log.Info().Dur("took", time.Since(start)).Msg("indexes ready")
		}()
		return st, nil
	default:
		g, err := database.NewGormDB(&cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := g.AutoMigrate(); err != nil {
			g.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("database ready")
		return g, nil
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing store")
	}
	a.logs.Close()
}
