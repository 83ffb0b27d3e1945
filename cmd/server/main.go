// Command server runs the DID registrar. main wires dependencies and keeps
// the process lifecycle small; business logic lives in the internal service
// packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"didreg/internal/platform/config"
	"didreg/internal/platform/httpserver"
	"didreg/internal/platform/logger"
	platformredis "didreg/internal/platform/redis"
	regHandler "didreg/internal/registrar/handler"
	regMetrics "didreg/internal/registrar/metrics"
	regService "didreg/internal/registrar/service"
	regStore "didreg/internal/registrar/store"
	httptransport "didreg/internal/transport/http"
	"didreg/pkg/platform/audit/publisher"
	kafkasink "didreg/pkg/platform/audit/sink/kafka"
	auditmemory "didreg/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("registrar exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var checks []httptransport.HealthCheck

	// Job table: Redis when configured, in-process map otherwise.
	var jobs regStore.JobStore
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		jobs = regStore.NewRedisJobStore(redisClient.Client, cfg.JobTTL)
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
	} else {
		jobs = regStore.NewInMemoryJobStore(cfg.JobTTL)
	}

	// Document store: Postgres when configured.
	var documents regStore.DocumentStore
	if cfg.PostgresDSN != "" {
		db, err := regStore.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		pgStore := regStore.NewPostgresDocumentStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		documents = pgStore
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: db.PingContext})
	} else {
		documents = regStore.NewInMemoryDocumentStore()
	}

	// Audit pipeline: in-process store, optional Kafka fan-out, buffered so
	// the request path never blocks on audit delivery.
	auditOpts := []publisher.Option{
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := kafkasink.New(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return err
		}
		auditOpts = append(auditOpts, publisher.WithSink(sink))
	}
	auditPub := publisher.NewPublisher(auditmemory.NewInMemoryStore(), auditOpts...)
	defer auditPub.Close()

	svc := regService.New(jobs, documents,
		regService.WithLogger(log),
		regService.WithMetrics(regMetrics.New()),
		regService.WithAuditPublisher(auditPub),
		regService.WithNetwork(cfg.Network),
		regService.WithSignatureVerification(cfg.VerifySignatures),
	)

	router := httptransport.NewRouter(regHandler.New(svc, log), log, checks...)
	srv := httpserver.New(cfg.Addr, router)

	cron := gocron.NewScheduler(time.UTC)
	if _, err := cron.Every(cfg.SweepInterval).Do(func() {
		if _, err := svc.SweepExpired(context.Background()); err != nil {
			log.Warn("expiry sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}
	cron.StartAsync()
	defer cron.Stop()

	log.Info("starting did registrar",
		"addr", cfg.Addr,
		"network", cfg.Network,
		"upstream_endpoint", cfg.UpstreamEndpoint,
		"job_ttl", cfg.JobTTL.String(),
		"sweep_interval", cfg.SweepInterval.String(),
		"verify_signatures", cfg.VerifySignatures,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
