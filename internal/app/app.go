package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/trendybets/propcore/external/jobqueue"
	"github.com/trendybets/propcore/external/oddsapi"
	"github.com/trendybets/propcore/internal/config"
	"github.com/trendybets/propcore/internal/domain/gamelog"
	"github.com/trendybets/propcore/internal/domain/player"
	"github.com/trendybets/propcore/internal/domain/props"
	cacherepo "github.com/trendybets/propcore/internal/infrastructure/repository/cache"
	"github.com/trendybets/propcore/internal/infrastructure/repository/memory"
	"github.com/trendybets/propcore/internal/infrastructure/repository/postgres"
	"github.com/trendybets/propcore/internal/interfaces/httpapi"
	platformcache "github.com/trendybets/propcore/internal/platform/cache"
	"github.com/trendybets/propcore/internal/platform/logging"
	"github.com/trendybets/propcore/internal/platform/resilience"
	"github.com/trendybets/propcore/internal/usecase"

	_ "github.com/lib/pq"
)

// NewHTTPServer wires storage, the odds provider, the refresh queue and the
// HTTP surface. The returned cleanup closes the database connection and must
// be called after the server has shut down.
func NewHTTPServer(cfg config.Config, logger *slog.Logger) (*http.Server, func(context.Context) error, error) {
	cleanup := func(context.Context) error { return nil }

	var (
		playerRepo player.Repository
		gameRepo   gamelog.Repository
		customRepo props.CustomProjectionRepository
	)

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		playerRepo = memory.NewPlayerRepository(memory.SeedPlayers())
		gameRepo = memory.NewGameLogRepository(memory.SeedGameLogs())
		customRepo = memory.NewCustomProjectionRepository()
	default:
		db, err := openDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		cleanup = func(context.Context) error { return db.Close() }

		playerRepo = postgres.NewPlayerRepository(db)
		gameRepo = postgres.NewGameLogRepository(db)
		customRepo = postgres.NewCustomProjectionRepository(db)
	}

	var svcCache usecase.Cache
	if cfg.CacheEnabled {
		store := platformcache.NewStore(cfg.CacheTTL)
		svcCache = store

		playerRepo = cacherepo.NewPlayerRepository(playerRepo, store, cfg.CacheTTL)
		gameRepo = cacherepo.NewGameLogRepository(gameRepo, store, cfg.CacheTTL)
		customRepo = cacherepo.NewCustomProjectionRepository(customRepo, store, cfg.CacheTTL)
	}

	oddsClient := oddsapi.NewClient(oddsapi.ClientConfig{
		BaseURL:           cfg.OddsAPIBaseURL,
		APIKey:            cfg.OddsAPIKey,
		Timeout:           cfg.OddsAPITimeout,
		MaxRetries:        cfg.OddsAPIMaxRetries,
		RequestsPerSecond: cfg.OddsAPIRequestsPerSecond,
		Burst:             cfg.OddsAPIBurst,
		Logger:            logging.NewJSON(cfg.LogLevel),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.OddsAPICircuitEnabled,
			FailureThreshold: cfg.OddsAPICircuitFailureCount,
			OpenTimeout:      cfg.OddsAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.OddsAPICircuitHalfOpenMaxReq,
		},
	})

	var publisher usecase.RefreshPublisher
	if cfg.QStashEnabled {
		publisher = jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
			BaseURL:          cfg.QStashBaseURL,
			Token:            cfg.QStashToken,
			TargetBaseURL:    cfg.QStashTargetBaseURL,
			Retries:          cfg.QStashRetries,
			InternalJobToken: cfg.InternalJobToken,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.QStashCircuitEnabled,
				FailureThreshold: cfg.QStashCircuitFailureCount,
				OpenTimeout:      cfg.QStashCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
			},
		}, logger)
	}

	propsCfg := usecase.PropsConfig{
		MaxInFlightFetches: cfg.PropsMaxInFlightFetches,
		HistoryBatchSize:   cfg.PropsHistoryBatchSize,
		CacheTTL:           cfg.CacheTTL,
		Markets:            cfg.OddsAPIMarkets,
		Bookmakers:         cfg.OddsAPIBookmakers,
	}

	propsSvc := usecase.NewPropsService(oddsClient, playerRepo, gameRepo, customRepo, svcCache, propsCfg, logger)
	projectionSvc := usecase.NewCustomProjectionService(customRepo, logger)
	refreshSvc := usecase.NewRefreshService(oddsClient, playerRepo, gameRepo, publisher, svcCache, propsCfg, logger)

	handler := httpapi.NewHandler(propsSvc, projectionSvc, refreshSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dsn,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)

	return db, nil
}
