package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kioscopos/internal/config"
	"kioscopos/internal/infra"
	"kioscopos/internal/repository"
	"kioscopos/internal/repository/memory"
	"kioscopos/internal/router"
	"kioscopos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ticketQueue is satisfied by both dispatchers.
type ticketQueue interface {
	worker.Handoff
	Start(ctx context.Context, numWorkers int, handle worker.JobHandler)
	Wait()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal().Msg("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
		log.Warn().Msg("JWT_SECRET not set, using an insecure development secret")
	}

	var (
		db    *gorm.DB
		store repository.Store
	)
	if cfg.UsesMemoryStore() {
		store = memory.New()
		log.Warn().Msg("DATABASE_URL=memory: data is lost on exit")
	} else {
		db, err = infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		store = repository.NewStore(db)
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ticket printing runs off the request path. Redis keeps pending tickets
	// across restarts; without it they live in an in-process channel.
	printer, err := infra.NewSpoolPrinter(cfg.TicketSpoolPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare ticket spool")
	}
	printerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	ticketWorker := worker.NewTicketWorker(printer, printerCB)

	var queue ticketQueue
	if rdb != nil {
		queue = worker.NewRedisDispatcher(rdb, cfg.TicketMaxAttempts)
	} else {
		queue = worker.NewLocalDispatcher(256, cfg.TicketMaxAttempts)
	}
	queue.Start(ctx, cfg.WorkerPoolSize, ticketWorker.Handle)

	r := router.New(router.Deps{
		Config:  cfg,
		DB:      db,
		Store:   store,
		Redis:   rdb,
		Handoff: queue,
		Printer: printerCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("kiosco POS backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	queue.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}
