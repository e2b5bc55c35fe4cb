package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instrupro-backend/config"
	"instrupro-backend/internal/api"
	"instrupro-backend/internal/cache"
	"instrupro-backend/internal/controller"
	"instrupro-backend/internal/db"
	"instrupro-backend/internal/model"
	"instrupro-backend/internal/mw"
	"instrupro-backend/internal/notification"
	"instrupro-backend/internal/refresher"
	"instrupro-backend/internal/store"
	"instrupro-backend/internal/webhook"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must be configured")
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	appStore := store.NewGormStore(gormDB)

	files, err := cache.NewFileStore(cfg.Cache.Dir)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var notifier controller.Notifier
	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		pool.Start(ctx)
		notifier = pool
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	var sender controller.ReportSender
	if hook := webhook.NewClient(cfg.Webhook.URL, cfg.Webhook.Timeout, logger.Named("webhook")); hook.Enabled() {
		sender = hook
	} else {
		logger.Warn("Webhook URL is not configured, weigh feeder submission is disabled")
	}

	dashboard := controller.NewDashboard(appStore, controller.DashboardOptions{
		Equipment: cfg.Equipment.Packers,
		Cache: cache.New[[]controller.EquipmentStatus](files, cache.Options{
			Key:    cache.KeyDashboard,
			TTL:    cfg.Cache.DashboardTTL,
			Logger: logger,
		}),
		Logger: logger,
	})
	history := controller.NewHistory(appStore, controller.HistoryOptions{
		Equipment: cfg.Equipment.Packers,
		Cache:     cache.New[controller.HistoryBlob](files, cache.Options{Key: cache.KeyHistory, Logger: logger}),
		Logger:    logger,
	})
	requests := controller.NewRequests(appStore, controller.RequestOptions{
		Cache:    cache.New[[]model.PLCRequest](files, cache.Options{Key: cache.KeyPLCRequest, Logger: logger}),
		Notifier: notifier,
		Logger:   logger,
	})
	weighFeeder, err := controller.NewWeighFeeder(cfg.Equipment.WeighFeederTags, controller.WeighFeederOptions{
		Sender: sender,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if cfg.Cache.Watch {
		watcher, err := cache.NewWatcher(files.Dir(), logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		dashboard.Observe(ctx, watcher)
		requests.Observe(ctx, watcher)
	}

	go refresher.NewService(cfg.Refresher, map[string]refresher.Target{"dashboard": dashboard}, logger).Run(ctx)

	router := api.NewRouter(cfg.Server, mw.NewAuthenticator(cfg.Auth.JWTSecret), api.Deps{
		Dashboard:     dashboard,
		History:       history,
		Requests:      requests,
		WeighFeeder:   weighFeeder,
		Subscriptions: appStore,
		WebPush:       webpushOptions,
		Logger:        logger,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping services...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	logger.Info("Server gracefully stopped")
	return nil
}
