package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/adapters/handler/http"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/metrics"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/notification"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/grantdesk/internal/config"
	"github.com/vncsmyrnk/grantdesk/internal/core/ports"
	"github.com/vncsmyrnk/grantdesk/internal/core/services"
	"github.com/vncsmyrnk/grantdesk/internal/logger"
)

type repositories struct {
	users        ports.UserRepository
	auth         ports.AuthRepository
	accounts     ports.AccountRepository
	restorations ports.RestorationRepository
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	repos, closeDB, err := openRepositories(cfg, zl)
	if err != nil {
		zl.Fatal("failed to open storage", zap.Error(err))
	}
	defer closeDB()

	renderer, err := notification.NewRenderer()
	if err != nil {
		zl.Fatal("failed to load email templates", zap.Error(err))
	}
	var notifier ports.Notifier
	if cfg.SendGridAPIKey != "" {
		notifier = notification.NewSendGridMailer(notification.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
			Sandbox:   cfg.SendGridSandbox,
		}, renderer, zl)
	} else {
		zl.Warn("SENDGRID_API_KEY not set, emails are only logged")
		notifier = notification.NewLogMailer(renderer, zl)
	}

	opts := []services.Option{services.WithLogger(zl), services.WithMetrics(metrics.Lifecycle{})}
	policy := cfg.Policy()

	authSvc := services.NewAuthService(repos.users, repos.auth, google.NewVerifier(), services.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		GoogleClientID: cfg.GoogleClientID,
	}, zl)
	userSvc := services.NewUserService(repos.users)
	accountSvc := services.NewAccountService(repos.users, repos.accounts, repos.restorations, notifier, policy, opts...)
	restorationSvc := services.NewRestorationService(repos.users, repos.restorations, notifier, services.RestorationConfig{
		Policy:       policy,
		SupportEmail: cfg.SupportEmail,
	}, opts...)

	handler := http.NewHandler(http.Handlers{
		Auth:          http.NewAuthHandler(authSvc, cfg.RedirectURL, cfg.CookieDomain, cfg.CookieSameSite),
		User:          http.NewUserHandler(userSvc),
		Account:       http.NewAccountHandler(accountSvc),
		Restoration:   http.NewRestorationHandler(restorationSvc),
		Authenticator: http.NewAuthenticator(cfg.JWTSecret),
	}, cfg.AllowedOrigins, zl)
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ExpirySweepSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.ExpirySweepSchedule, func() {
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if _, err := restorationSvc.SweepExpired(sweepCtx); err != nil {
				zl.Error("expiry sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			zl.Fatal("invalid expiry sweep schedule", zap.Error(err))
		}
		c.Start()
		defer c.Stop()
		zl.Info("expiry sweep scheduled", zap.String("schedule", cfg.ExpirySweepSchedule))
	}

	go func() {
		zl.Info("listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown failed", zap.Error(err))
	}
}

func openRepositories(cfg *config.Config, zl *zap.Logger) (repositories, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		zl.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			users:        store.Users(),
			auth:         store.Auth(),
			accounts:     store.Accounts(),
			restorations: store.Restorations(),
		}, func() {}, nil
	}

	dbURL := cfg.Postgres.URL()
	if cfg.AutoMigrate {
		version, err := postgres.Migrate(dbURL)
		if err != nil {
			return repositories{}, nil, err
		}
		zl.Info("database migrated", zap.Uint("version", version))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return repositories{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return repositories{}, nil, err
	}

	return repositories{
		users:        postgres.NewUserRepository(db),
		auth:         postgres.NewAuthRepository(db),
		accounts:     postgres.NewAccountRepository(db),
		restorations: postgres.NewRestorationRepository(db),
	}, func() { db.Close() }, nil
}
