package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/groupcar/groupcar-server/internal/app"
	"github.com/groupcar/groupcar-server/internal/config"
	"github.com/groupcar/groupcar-server/internal/domain"
	"github.com/groupcar/groupcar-server/internal/http/handler"
	"github.com/groupcar/groupcar-server/internal/http/middleware"
	"github.com/groupcar/groupcar-server/internal/http/router"
	"github.com/groupcar/groupcar-server/internal/notification"
	"github.com/groupcar/groupcar-server/internal/observability"
	"github.com/groupcar/groupcar-server/internal/repository"
	"github.com/groupcar/groupcar-server/internal/security"
	"github.com/groupcar/groupcar-server/internal/session"
	"github.com/groupcar/groupcar-server/internal/tools/common"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "groupcar-server",
		Short: "Group car sharing backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := common.LoadEnvFile(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			return run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "environment file to load before startup")
	return cmd
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerProvider, err := observability.NewLogger(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)

	runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	codec, err := security.NewTokenCodec(cfg.JWTIssuer, cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("init token codec: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Membership{},
		&domain.Invite{},
		&domain.Car{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, err := openSessionStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	sessions := session.NewManager(store, session.Timeouts{
		Absolute:   cfg.SessionAbsoluteTimeout,
		Inactivity: cfg.SessionInactivityTimeout,
	})

	users := repository.NewUserRepository(db)
	groups := repository.NewGroupRepository(db)
	cars := repository.NewCarRepository(db)
	hub := notification.NewHub(logger)

	pipeline := middleware.NewSessionPipeline(codec, sessions, middleware.CookiePolicy{
		Name:   cfg.CookieName,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.TokenTTL,
	}, cfg.CSRFHeaderName, nil, logger)

	h := router.New(router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(users, sessions, cfg.CSRFHeaderName),
		UserHandler:         handler.NewUserHandler(groups),
		GroupHandler:        handler.NewGroupHandler(groups, users, hub),
		CarHandler:          handler.NewCarHandler(cars, groups),
		NotificationHandler: handler.NewNotificationHandler(hub, logger),
		SessionPipeline:     pipeline,
		UserRepository:      users,
		LoginThrottle:       middleware.NewLoginThrottle(cfg.LoginRatePerMinute),
		EnableOTelHTTP:      cfg.EnableOTelHTTP,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // websocket connections stay open
		IdleTimeout:       2 * time.Minute,
	}

	return app.New(cfg, logger, server, runtime).Run(ctx)
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	}
	if cfg.DatabaseURL != "" {
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}
	return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
}

func openSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory session store")
		return session.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return session.NewRedisStore(client, "session"), nil
}
