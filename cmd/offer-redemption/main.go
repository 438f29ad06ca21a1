// Package main запускает HTTP-сервер сервиса погашения предложений.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/offer-redemption/internal/config"
	"github.com/mmeshcher/offer-redemption/internal/directory"
	"github.com/mmeshcher/offer-redemption/internal/events"
	"github.com/mmeshcher/offer-redemption/internal/handler"
	"github.com/mmeshcher/offer-redemption/internal/metrics"
	"github.com/mmeshcher/offer-redemption/internal/repository"
	"github.com/mmeshcher/offer-redemption/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var repo service.Repository
	if cfg.DatabaseURI != "" {
		pg, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		repo = pg
	} else {
		sugar.Warn("DATABASE_URI is not set, using in-memory storage")
		mem := repository.NewMemoryRepository()
		if cfg.SeedFile != "" {
			if err := mem.LoadSeedFile(cfg.SeedFile); err != nil {
				sugar.Fatalw("seed loading error", "error", err.Error(), "path", cfg.SeedFile)
			}
			sugar.Infow("in-memory storage seeded", "path", cfg.SeedFile)
		} else if cfg.RestaurantDirectoryAddress == "" {
			sugar.Warn("neither SEED_FILE nor RESTAURANT_DIRECTORY_ADDRESS is set, redemption requests will fail to resolve restaurants")
		}
		repo = mem
	}

	var dir service.RestaurantDirectory
	if cfg.RestaurantDirectoryAddress != "" {
		dir = directory.NewClient(cfg.RestaurantDirectoryAddress)
	}

	var publisher service.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kp.Close(); err != nil {
				sugar.Warnw("kafka writer close error", "error", err)
			}
		}()
		publisher = kp
	}

	m := metrics.New()

	svc := service.NewService(repo, dir, publisher, m, logger)
	defer svc.Close()

	h := handler.NewHandler(svc, logger, m)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая деактивация истёкших предложений
	g.Go(func() error {
		svc.StartExpirySweep(ctx, cfg.ExpirySweepInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting offer redemption server",
			"addr", cfg.RunAddress,
			"sweep_interval", cfg.ExpirySweepInterval.String(),
			"kafka_brokers", cfg.KafkaBrokers,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
