package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edupoint/reportcard/internal/app"
	"github.com/edupoint/reportcard/internal/config"
	"github.com/edupoint/reportcard/internal/db"
	"github.com/edupoint/reportcard/internal/jobs"
	"github.com/edupoint/reportcard/internal/logging"
	"github.com/edupoint/reportcard/internal/marksheet"
	"github.com/edupoint/reportcard/internal/observability"
	"github.com/edupoint/reportcard/internal/report"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Closer()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, os.Getenv("RELEASE"))
	if err != nil {
		log.Base.Warn("sentry init failed", zap.Error(err))
	} else {
		defer flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Init(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Base.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		log.Base.Fatal("db migrate failed", zap.Error(err))
	}

	if cfg.SeedDemoData {
		if err := db.SeedDemo(ctx, database); err != nil {
			log.Base.Fatal("seed demo data failed", zap.Error(err))
		}
	}

	store := db.NewStore(database)
	gen := report.NewGenerator(store, store, store, log.Base)
	pub := report.NewPublisher(store, store, log.Base)
	imp := marksheet.NewImporter(store, log.Base)
	api := app.NewAPI(store, gen, pub, imp, log.Base)

	app.StartHTTP(ctx, cfg.HTTPAddr, database, api)

	runner := jobs.New(ctx)
	runner.Every(6*time.Hour, "stale_draft_sweep", jobs.StaleDraftSweep(store, cfg.StaleDraftAge, log.Base))

	log.Base.Info("report card service started",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("env", cfg.Env),
		zap.String("tz", cfg.Location.String()))

	<-ctx.Done()
	log.Base.Info("shutting down")
	time.Sleep(300 * time.Millisecond) // let the HTTP shutdown goroutine run
}
