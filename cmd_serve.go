package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"nixbot/internal/api"
	"nixbot/internal/auth"
	"nixbot/internal/config"
	"nixbot/internal/lock"
	"nixbot/internal/logger"
	"nixbot/internal/metrics"
	"nixbot/internal/redis"
	"nixbot/internal/service/ai"
	"nixbot/internal/service/chat"
	"nixbot/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Str("driver", cfg.BasicConfig.Database).Msg("database ready")

	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		return fmt.Errorf("create redis client: %w", err)
	}
	defer rdb.Close()

	var locker lock.Locker = lock.NewLocal()
	if rdb.Enabled() {
		locker = lock.NewRedis(rdb, lock.DefaultRedisTTL)
		log.Info().Str("host", cfg.Redis.Host).Msg("redis enabled for locks and token revocation")
	}

	provider, err := ai.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}

	chatService := chat.NewService(
		storage.NewConversationStore(db),
		storage.NewMessageStore(db),
		provider,
		chat.Options{Locker: locker, HistoryLimit: cfg.BasicConfig.HistoryLimit, Logger: log},
	)
	authService := auth.NewService(storage.NewUserStore(db), rdb, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handlers := api.NewHandler(chatService, authService, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log), metrics.GinMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.BasicConfig.ServerAddress,
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("provider", provider.Name()).Msg("NixBot API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.BasicConfig.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
