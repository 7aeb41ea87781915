// Package main запускает HTTP-сервер витрины.
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

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalog"
	"github.com/mmeshcher/storefront/internal/config"
	"github.com/mmeshcher/storefront/internal/handler"
	"github.com/mmeshcher/storefront/internal/installment"
	"github.com/mmeshcher/storefront/internal/messaging"
	"github.com/mmeshcher/storefront/internal/messaging/kafka"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/repository"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/storage/memory"
	"github.com/mmeshcher/storefront/internal/storage/redis"
	"github.com/mmeshcher/storefront/internal/storage/sqlite"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	var pg *repository.PostgresRepository
	if cfg.DatabaseURI != "" {
		pg, err = repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
	}

	store, closeStore, err := openCartStore(cfg, pg)
	if err != nil {
		sugar.Fatalw("cart storage initialization error", "error", err.Error())
	}
	defer closeStore()

	var repo service.InstallmentRepository = memory.NewInstallmentStore()
	if pg != nil {
		repo = pg
	}

	var products service.ProductCatalog
	if cfg.CatalogAddress != "" {
		products = catalog.NewClient(cfg.CatalogAddress, cfg.CatalogAPIKey)
	}

	var publisher messaging.Publisher = messaging.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
	}

	engine := installment.NewEngine(installment.WithEnabled(cfg.InstallmentsEnabled))

	installments := service.NewInstallmentService(repo, engine, products, publisher, logger)
	defer installments.Close()

	carts := service.NewCartService(cart.NewManager(store, logger), products, publisher, logger)

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, sessions will not survive restart")
	}
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionSecret)
	h := handler.NewHandler(installments, carts, logger, sessionMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновая отметка просроченных платежей
	g.Go(func() error {
		installments.StartOverdueUpdates(ctx, cfg.OverdueSweepInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting storefront server", "addr", cfg.RunAddress)
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

// openCartStore выбирает хранилище корзин: redis, sqlite, postgres или память процесса.
// Пул postgres закрывается сервисом рассрочек, поэтому для него closer пустой.
func openCartStore(cfg *config.Config, pg *repository.PostgresRepository) (storage.Store, func(), error) {
	switch {
	case cfg.RedisAddress != "":
		s, err := redis.New(cfg.RedisAddress)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case cfg.SQLitePath != "":
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case pg != nil:
		return pg, func() {}, nil
	default:
		return memory.NewStore(), func() {}, nil
	}
}
