package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hqv2016/salonpulse/pkg/logger"

	"github.com/hqv2016/salonpulse/internal/api"
	"github.com/hqv2016/salonpulse/internal/app"
	"github.com/hqv2016/salonpulse/internal/auth"
	"github.com/hqv2016/salonpulse/internal/database"
	"github.com/hqv2016/salonpulse/internal/maintenance"
	"github.com/hqv2016/salonpulse/internal/notify"
	"github.com/hqv2016/salonpulse/internal/realtime"
	"github.com/hqv2016/salonpulse/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return err
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.Auth.JWTSecret,
		Issuer:         cfg.Auth.JWTIssuer,
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	})
	if err != nil {
		return err
	}

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry,
		realtime.WithIdleTimeout(cfg.Realtime.IdleTimeout),
		realtime.WithWriteWait(cfg.Realtime.WriteWait),
		realtime.WithSendBuffer(cfg.Realtime.SendBuffer),
	)

	notificationService, err := services.NewNotificationService(db)
	if err != nil {
		return err
	}
	chatService, err := services.NewChatService(db, hub)
	if err != nil {
		return err
	}
	dispatcher, err := notify.NewDispatcher(db, hub)
	if err != nil {
		return err
	}

	cleaner, err := maintenance.NewCleaner(db, hub,
		maintenance.WithSchedule(cfg.Maintenance.Schedule),
		maintenance.WithStaleAfter(cfg.Realtime.StaleAfter),
		maintenance.WithNotificationRetention(cfg.Maintenance.NotificationRetention),
	)
	if err != nil {
		return err
	}
	if err := cleaner.Start(); err != nil {
		return err
	}
	defer cleaner.Stop()

	router := api.NewRouter(api.Dependencies{
		DB:            db,
		JWTService:    jwtService,
		Hub:           hub,
		Registry:      registry,
		Notifications: notificationService,
		Chat:          chatService,
		Dispatcher:    dispatcher,
	})

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
