package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/itamhq/inventory/internal/adapter/events"
	"github.com/itamhq/inventory/internal/adapter/handler"
	"github.com/itamhq/inventory/internal/adapter/storage"
	"github.com/itamhq/inventory/internal/config"
	"github.com/itamhq/inventory/internal/core/domain"
	"github.com/itamhq/inventory/internal/core/service"
	"github.com/itamhq/inventory/internal/port"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}
	log.Info().Msg("connected to mysql")

	store := storage.NewMySQLStore(db)
	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		log.Info().Msg("schema migrated")
	}

	// Redis dashboard cache, optional
	var cache port.DashboardCache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, dashboard cache disabled")
			rdb.Close()
			rdb = nil
		} else {
			cache = storage.NewRedisCache(rdb, cfg.DashboardTTL)
			log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		}
	}

	// Event publisher: RabbitMQ when configured, log-only otherwise
	var publisher port.EventPublisher = events.LogPublisher{}
	if cfg.RabbitURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.EventQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		publisher = rp
		log.Info().Str("queue", cfg.EventQueue).Msg("connected to rabbitmq")
	}

	svc := service.NewInventoryService(store, cache, cfg.QueueSize)

	// Publisher worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			publishLoop(id, svc.Events(), publisher)
		}(i)
	}
	log.Info().Int("count", cfg.WorkerCount).Msg("started publisher workers")

	// HTTP server
	httpHandler := handler.NewHTTPHandler(svc)
	mux := http.NewServeMux()
	httpHandler.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: cors.AllowAll().Handler(handler.RequestID(handler.AccessLog(mux))),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	log.Info().Msg("HTTP server stopped")

	svc.Close()
	wg.Wait()
	log.Info().Msg("publisher workers stopped")

	publisher.Close()
	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	log.Info().Msg("connections closed")
}

func publishLoop(id int, queue <-chan domain.StockEvent, publisher port.EventPublisher) {
	for ev := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := publisher.Publish(ctx, ev); err != nil {
			log.Error().Err(err).
				Int("worker", id).
				Int64("item_id", ev.ItemID).
				Str("type", string(ev.Type)).
				Msg("failed to publish stock event")
		}

		cancel()
	}
}
