// Command server runs the gmarup backend: registration and donation intake,
// the settings registry, analytics ingest, and the admin API, all over a
// single SQLite file.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	analyticshandler "gmarup/internal/analytics/handler"
	analyticsservice "gmarup/internal/analytics/service"
	analyticsstore "gmarup/internal/analytics/store"
	donationhandler "gmarup/internal/donation/handler"
	donationservice "gmarup/internal/donation/service"
	donationstore "gmarup/internal/donation/store"
	httptransport "gmarup/internal/http"
	"gmarup/internal/platform/config"
	"gmarup/internal/platform/httpserver"
	"gmarup/internal/platform/logger"
	"gmarup/internal/platform/metrics"
	platformredis "gmarup/internal/platform/redis"
	"gmarup/internal/ratelimit/service/requestlimit"
	"gmarup/internal/ratelimit/store/bucket"
	registrationhandler "gmarup/internal/registration/handler"
	registrationservice "gmarup/internal/registration/service"
	registrationstore "gmarup/internal/registration/store"
	settingshandler "gmarup/internal/settings/handler"
	settingsservice "gmarup/internal/settings/service"
	settingsstore "gmarup/internal/settings/store"
	storage "gmarup/internal/storage/sqlite"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var buckets requestlimit.BucketStore
	if redisClient != nil {
		buckets = bucket.NewRedis(redisClient.Client)
		log.Info("rate limiting backed by redis")
	} else {
		buckets = bucket.NewMemory()
		log.Info("rate limiting backed by process memory")
	}
	limiter := requestlimit.New(buckets, log, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	registrationSvc := registrationservice.NewService(
		registrationstore.NewSQLite(db), db,
		registrationservice.WithMetrics(m),
	)
	donationSvc := donationservice.NewService(
		donationstore.NewSQLite(db), db,
		cfg.PaymentURLTemplate,
		donationservice.WithMetrics(m),
	)
	settingsSvc := settingsservice.NewService(
		settingsstore.NewSQLite(db), db,
		settingsservice.WithMetrics(m),
	)
	analyticsSvc := analyticsservice.NewService(
		analyticsstore.NewSQLite(db), log,
		analyticsservice.WithMetrics(m),
	)

	router := httptransport.NewRouter(log, m, db, httptransport.Handlers{
		Registration: registrationhandler.New(registrationSvc, log),
		Donation:     donationhandler.New(donationSvc, log),
		Settings:     settingshandler.New(settingsSvc, log),
		Analytics:    analyticshandler.New(analyticsSvc, log),
	}, limiter)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting gmarup server", "addr", cfg.Addr, "db", cfg.DatabasePath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
