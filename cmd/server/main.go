// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"tokenctx/internal/asset"
	"tokenctx/internal/attachment"
	"tokenctx/internal/contextreg"
	"tokenctx/internal/controller"
	"tokenctx/internal/core"
	"tokenctx/internal/delegation"
	"tokenctx/internal/enumerable"
	"tokenctx/internal/event"
	"tokenctx/internal/guard"
	"tokenctx/internal/jwttoken"
	"tokenctx/internal/platform/config"
	"tokenctx/internal/platform/httpserver"
	"tokenctx/internal/platform/logger"
	"tokenctx/internal/platform/metrics"
	platformredis "tokenctx/internal/platform/redis"
	httptransport "tokenctx/internal/transport/http"
)

const eventInboxSize = 1024

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]httptransport.HealthChecker)

	// Event pipeline: memory store always; Kafka fan-out when configured.
	eventStore := event.NewInMemoryStore()
	sink, err := event.NewKafkaSink(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka sink init failed", "error", err.Error())
		os.Exit(1)
	}
	publisherOpts := []event.Option{event.WithLogger(log)}
	var inbox chan event.Event
	if sink != nil {
		inbox = make(chan event.Event, eventInboxSize)
		publisherOpts = append(publisherOpts, event.WithInbox(inbox))
		defer sink.Close()
	}
	publisher := event.NewPublisher(eventStore, publisherOpts...)

	// Context store: memory by default, postgres when configured.
	var ctxStore contextreg.Store = contextreg.NewInMemoryStore()
	if cfg.PostgresURL != "" {
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		pg := contextreg.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("postgres schema init failed", "error", err.Error())
			os.Exit(1)
		}
		ctxStore = pg
		checks["postgres"] = dbHealth{db}
	}

	// Delegation store: memory by default, redis when configured.
	var dlgStore delegation.Store = delegation.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dlgStore = delegation.NewRedisStore(redisClient.Client)
		checks["redis"] = redisClient
	}

	ledger := asset.NewLedger()
	dlgService := delegation.New(dlgStore, ledger,
		delegation.WithLogger(log),
		delegation.WithEventPublisher(publisher),
		delegation.WithMetrics(m),
	)
	ownershipGuard := guard.New(dlgService, ledger)

	resolver := controller.NewRegistryResolver()
	dispatcher := controller.NewDispatcher(resolver,
		controller.WithLogger(log),
		controller.WithMetrics(m),
	)

	ctxService := contextreg.New(ctxStore, cfg.MaxDetachingDuration,
		contextreg.WithLogger(log),
		contextreg.WithEventPublisher(publisher),
		contextreg.WithMetrics(m),
	)
	index := enumerable.NewIndex()
	registry := enumerable.NewRegistry(ctxService, index)

	attachStore := attachment.NewInMemoryStore()
	coreService := core.New(registry, attachStore, dlgService, ownershipGuard, dispatcher,
		core.WithLogger(log),
		core.WithEventPublisher(publisher),
		core.WithMetrics(m),
	)
	ledger.SetMoveHook(coreService)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "tokenctx", "tokenctx")
	handler := httptransport.NewHandler(coreService, index, enumerable.NewTokenContexts(attachStore), log, m)
	router := httptransport.NewRouter(handler, jwttoken.NewJWTServiceAdapter(jwtService), log, m, checks)

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting tokenctx", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sink != nil {
		worker := event.NewWorker(sink, inbox, log)
		group.Go(func() error {
			err := worker.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// dbHealth adapts *sql.DB to the router's health check interface.
type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
