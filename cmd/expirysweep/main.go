package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vncsmyrnk/grantdesk/internal/adapters/metrics"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/notification"
	"github.com/vncsmyrnk/grantdesk/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/grantdesk/internal/config"
	"github.com/vncsmyrnk/grantdesk/internal/core/services"
	"github.com/vncsmyrnk/grantdesk/internal/logger"
)

// Expires PENDING restoration requests whose grace period elapsed. Meant for an
// external scheduler; the server can run the same sweep with EXPIRY_SWEEP_SCHEDULE.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Job timeout")
	flag.Parse()

	cfg, err := config.LoadJob()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	db, err := sql.Open("postgres", cfg.Postgres.URL())
	if err != nil {
		zl.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		zl.Fatal("failed to reach database", zap.Error(err))
	}

	renderer, err := notification.NewRenderer()
	if err != nil {
		zl.Fatal("failed to load email templates", zap.Error(err))
	}

	// Expiry sends no email.
	restorationSvc := services.NewRestorationService(
		postgres.NewUserRepository(db),
		postgres.NewRestorationRepository(db),
		notification.NewLogMailer(renderer, zl),
		services.RestorationConfig{Policy: cfg.Policy(), SupportEmail: cfg.SupportEmail},
		services.WithLogger(zl),
		services.WithMetrics(metrics.Lifecycle{}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	zl.Info("starting restoration expiry sweep")

	n, err := restorationSvc.SweepExpired(ctx)
	if err != nil {
		zl.Fatal("expiry sweep failed", zap.Error(err))
	}

	zl.Info("expiry sweep completed", zap.Int64("expired", n))
}
