// Command server wires the blood donation lifecycle engine: stores, services,
// handlers, the audit pipeline, and the HTTP surface. Business logic lives in
// the internal services; main only chooses implementations and connects them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	appointmenthandler "k9hope/internal/appointment/handler"
	appointmentmetrics "k9hope/internal/appointment/metrics"
	appointmentservice "k9hope/internal/appointment/service"
	appointmentstore "k9hope/internal/appointment/store"
	discoverycache "k9hope/internal/discovery/cache"
	discoveryhandler "k9hope/internal/discovery/handler"
	discoveryservice "k9hope/internal/discovery/service"
	donorhandler "k9hope/internal/donor/handler"
	donormetrics "k9hope/internal/donor/metrics"
	donorservice "k9hope/internal/donor/service"
	donorstore "k9hope/internal/donor/store"
	inventoryhandler "k9hope/internal/inventory/handler"
	inventorymetrics "k9hope/internal/inventory/metrics"
	inventoryservice "k9hope/internal/inventory/service"
	inventorystore "k9hope/internal/inventory/store"
	"k9hope/internal/platform/config"
	"k9hope/internal/platform/httpserver"
	"k9hope/internal/platform/logger"
	"k9hope/internal/platform/middleware"
	"k9hope/internal/platform/postgres"
	platformredis "k9hope/internal/platform/redis"
	requesthandler "k9hope/internal/request/handler"
	requestmetrics "k9hope/internal/request/metrics"
	requestservice "k9hope/internal/request/service"
	requeststore "k9hope/internal/request/store"
	"k9hope/pkg/platform/audit"
	auditpublisher "k9hope/pkg/platform/audit/publisher"
	auditmemory "k9hope/pkg/platform/audit/store/memory"
	auditpostgres "k9hope/pkg/platform/audit/store/postgres"
	auditworker "k9hope/pkg/platform/audit/worker"
	"k9hope/pkg/platform/middleware/requesttime"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres unavailable", "error", err.Error())
		return
	}
	if db != nil {
		defer db.Close()
		if err := postgres.ApplySchema(ctx, db); err != nil {
			log.Error("schema apply failed", "error", err.Error())
			return
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err.Error())
		return
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Audit pipeline: services emit into the sink; the worker drains it into
	// the store and the optional Kafka publisher.
	sink := audit.NewChannelSink(cfg.Audit.Buffer)
	var auditStore audit.Store
	if db != nil {
		auditStore = auditpostgres.New(db)
	} else {
		auditStore = auditmemory.New()
	}
	kafka, err := auditpublisher.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Error("kafka unavailable", "error", err.Error())
		return
	}
	var publisher audit.Publisher
	if kafka != nil {
		publisher = kafka
		defer kafka.Close(context.Background())
	}

	// Stores and the completion transaction boundary.
	var (
		requestStore     requestservice.Store
		appointmentStore appointmentservice.Store
		donorStore       donorservice.Store
		inventoryStore   inventoryservice.Store
		donationTx       appointmentservice.DonationTx
	)
	if db != nil {
		requestStore = requeststore.NewPostgres(db)
		appointmentStore = appointmentstore.NewPostgres(db)
		donorStore = donorstore.NewPostgres(db)
		inventoryStore = inventorystore.NewPostgres(db)
		donationTx = newDonationPostgresTx(db)
	} else {
		requestStore = requeststore.NewInMemory()
		appointmentStore = appointmentstore.NewInMemory()
		donorStore = donorstore.NewInMemory()
		inventoryStore = inventorystore.NewInMemory()
		donationTx = appointmentservice.NewShardedTx()
	}

	requests := requestservice.New(requestStore,
		requestservice.WithLogger(log),
		requestservice.WithAuditSink(sink),
		requestservice.WithMetrics(requestmetrics.New()),
	)
	donors := donorservice.New(donorStore,
		donorservice.WithLogger(log),
		donorservice.WithAuditSink(sink),
		donorservice.WithMetrics(donormetrics.New()),
	)
	appointments := appointmentservice.New(appointmentStore, requests, donors, donationTx,
		appointmentservice.WithLogger(log),
		appointmentservice.WithAuditSink(sink),
		appointmentservice.WithMetrics(appointmentmetrics.New()),
	)
	inventory := inventoryservice.New(inventoryStore,
		inventoryservice.WithLogger(log),
		inventoryservice.WithAuditSink(sink),
		inventoryservice.WithMetrics(inventorymetrics.New()),
	)

	discoveryOpts := []discoveryservice.Option{
		discoveryservice.WithLogger(log),
		discoveryservice.WithRequestSource(requests),
	}
	if redisClient != nil {
		discoveryOpts = append(discoveryOpts,
			discoveryservice.WithCache(discoverycache.NewRedis(redisClient.Client, cfg.Redis.CacheTTL)))
	}
	discovery := discoveryservice.New(donors, discoveryOpts...)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(requesttime.Middleware)
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	requesthandler.New(requests, appointments, log).Register(router)
	appointmenthandler.New(appointments, log).Register(router)
	donorhandler.New(donors, log).Register(router)
	discoveryhandler.New(discovery, log).Register(router)
	inventoryhandler.New(inventory, log).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)
	group, groupCtx := errgroup.WithContext(ctx)

	worker := auditworker.New(auditStore, publisher, sink.Inbox(), log)
	group.Go(func() error {
		err := worker.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		log.Info("starting k9hope server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err.Error())
	}
}
