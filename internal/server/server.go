package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seckill/internal/catalog"
	"seckill/internal/config"
	"seckill/internal/engine"
	"seckill/internal/handlers"
	"seckill/internal/ledger"
	"seckill/internal/stock"
	"seckill/internal/token"
	"seckill/internal/worker"
)

type Server struct {
	cfg    *config.Config
	log    zerolog.Logger
	pool   *pgxpool.Pool
	rdb    *redis.Client
	router *chi.Mux

	kafkaLedger *ledger.KafkaLedger
	auditWorker *worker.AuditWorker
}

func NewServer(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	codec, err := token.NewCodec(cfg.TokenSecret, cfg.TokenEpoch)
	if err != nil {
		return nil, fmt.Errorf("failed to build token codec (set TOKEN_SECRET): %w", err)
	}

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cat := catalog.NewPostgresCatalog(pool)
	if err := cat.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	srv := &Server{cfg: cfg, log: log, pool: pool}

	store, err := srv.newStockStore(ctx, cat)
	if err != nil {
		pool.Close()
		return nil, err
	}

	led := srv.newLedger()

	eng := engine.New(cat, store, led, codec, log)
	handler := handlers.NewHandler(eng, log)

	r := chi.NewRouter()

	if cfg.EnableRequestLogger {
		r.Use(middleware.Logger)
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ThrottleBacklog(cfg.MaxConcurrentReqs, 1000, time.Second*60))
	r.Use(middleware.Heartbeat("/health"))
	r.Use(middleware.RequestID)

	r.Get("/seckill", handler.HandleList)
	r.Get("/seckill/{saleID}", handler.HandleGet)
	r.Get("/seckill/{saleID}/exposer", handler.HandleExposer)
	r.Post("/seckill/{saleID}/execution", handler.HandleExecution)

	srv.router = r
	return srv, nil
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}

	pc.MaxConns = int32(cfg.DBMaxConns)
	pc.MinConns = int32(cfg.DBMinConns)
	pc.MaxConnLifetime = cfg.DBConnMaxLifetime
	pc.MaxConnIdleTime = cfg.DBConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// newStockStore builds the configured backend. The memory and redis
// backends hold the live counter themselves, so they are seeded from the
// catalog at startup; the postgres backend reads the counters the seeding
// path created.
func (s *Server) newStockStore(ctx context.Context, cat *catalog.PostgresCatalog) (stock.Store, error) {
	switch s.cfg.StockBackend {
	case config.StockBackendPostgres:
		return stock.NewPostgresStore(s.pool), nil

	case config.StockBackendMemory:
		listings, err := cat.ListListings(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load listings for stock seeding: %w", err)
		}
		store := stock.NewMemoryStore()
		for _, l := range listings {
			store.SeedSale(l.ID, l.InitialStock)
		}
		return store, nil

	case config.StockBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:         s.cfg.RedisAddr,
			PoolSize:     s.cfg.RedisPoolSize,
			MinIdleConns: s.cfg.RedisMinIdleConns,
			MaxRetries:   s.cfg.RedisMaxRetries,
			DialTimeout:  s.cfg.RedisDialTimeout,
			ReadTimeout:  s.cfg.RedisReadTimeout,
			WriteTimeout: s.cfg.RedisWriteTimeout,
			PoolTimeout:  s.cfg.RedisPoolTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		s.rdb = rdb

		store := stock.NewRedisStore(rdb)
		listings, err := cat.ListListings(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load listings for stock seeding: %w", err)
		}
		for _, l := range listings {
			if err := store.PrepareSale(ctx, l.ID, l.InitialStock); err != nil {
				return nil, err
			}
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown stock backend %q", s.cfg.StockBackend)
	}
}

// newLedger picks the audit path: with Kafka brokers configured, attempts
// are published to the topic and a worker drains them into Postgres;
// without, they are written to Postgres inline.
func (s *Server) newLedger() ledger.Ledger {
	pg := ledger.NewPostgresLedger(s.pool)

	if len(s.cfg.KafkaBrokers) == 0 {
		return pg
	}

	s.kafkaLedger = ledger.NewKafkaLedger(s.cfg.KafkaBrokers, s.cfg.KafkaTopic)
	s.auditWorker = worker.NewAuditWorker(
		s.cfg.KafkaBrokers, s.cfg.KafkaTopic, s.cfg.KafkaGroupID, pg, s.log)
	return s.kafkaLedger
}

func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	apiServer := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ServerReadTimeout,
		WriteTimeout: s.cfg.ServerWriteTimeout,
		IdleTimeout:  s.cfg.ServerIdleTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + s.cfg.MetricsPort,
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info().Str("addr", apiServer.Addr).Msg("server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.log.Info().Str("addr", metricsServer.Addr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})

	if s.auditWorker != nil {
		g.Go(func() error {
			return s.auditWorker.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info().Msg("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ServerShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed, forcing close")
			_ = apiServer.Close()
		}
		_ = metricsServer.Shutdown(shutdownCtx)
		return nil
	})

	err := g.Wait()
	s.log.Info().Msg("server shutdown complete")
	return err
}

func (s *Server) Close() error {
	if s.auditWorker != nil {
		if err := s.auditWorker.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close audit worker")
		}
	}

	if s.kafkaLedger != nil {
		if err := s.kafkaLedger.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to close kafka ledger")
		}
	}

	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	s.pool.Close()
	return nil
}
