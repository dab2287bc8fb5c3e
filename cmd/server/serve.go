package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	activityservice "barangay/internal/activity/service"
	announcementservice "barangay/internal/announcement/service"
	announcementstore "barangay/internal/announcement/store"
	citizenservice "barangay/internal/citizen/service"
	citizenstore "barangay/internal/citizen/store"
	dashboardservice "barangay/internal/dashboard/service"
	docmetrics "barangay/internal/documents/metrics"
	docservice "barangay/internal/documents/service"
	"barangay/internal/documents/store/generated"
	"barangay/internal/documents/store/request"
	"barangay/internal/documents/store/template"
	jwttoken "barangay/internal/jwt_token"
	"barangay/internal/notification/dispatcher"
	"barangay/internal/notification/gateway"
	notifmetrics "barangay/internal/notification/metrics"
	"barangay/internal/platform/config"
	"barangay/internal/platform/httpserver"
	"barangay/internal/platform/logger"
	"barangay/internal/platform/metrics"
	"barangay/internal/platform/postgres"
	redisclient "barangay/internal/platform/redis"
	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/audit/publisher"
	"barangay/pkg/platform/audit/publishers/kafka"
	auditmemory "barangay/pkg/platform/audit/store/memory"
	auditpostgres "barangay/pkg/platform/audit/store/postgres"
	"barangay/pkg/platform/tx"
)

const shutdownTimeout = 15 * time.Second

// stores groups the persistence backends selected at startup.
type stores struct {
	citizens      citizenStore
	requests      requestStore
	announcements announcementservice.Store
	activity      audit.Store
	tx            tx.Runner
	db            *sql.DB
}

// citizenStore is satisfied by both citizen store implementations.
type citizenStore interface {
	citizenservice.Store
	docservice.CitizenStore
	dashboardservice.CitizenStore
}

type requestStore interface {
	docservice.RequestStore
	dashboardservice.RequestStore
}

func openStores(ctx context.Context, cfg config.Server, log *slog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory stores")
		return &stores{
			citizens:      citizenstore.NewInMemory(),
			requests:      request.NewInMemory(),
			announcements: announcementstore.NewInMemory(),
			activity:      auditmemory.NewInMemoryStore(),
			tx:            tx.NopRunner{},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &stores{
		citizens:      citizenstore.NewPostgres(db),
		requests:      request.NewPostgres(db),
		announcements: announcementstore.NewPostgres(db),
		activity:      auditpostgres.New(db),
		tx:            tx.NewPostgresRunner(db, cfg.Database.TxTimeout),
		db:            db,
	}, nil
}

// serve runs until SIGINT/SIGTERM or until a background component fails.
func serve(parent context.Context, cfg config.Server) error {
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	rdb, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var queue dispatcher.Queue = dispatcher.NewChannelQueue(cfg.SMS.QueueSize)
	if rdb != nil {
		defer rdb.Close()
		queue = dispatcher.NewRedisQueue(rdb.Client, cfg.Redis.QueueKey, cfg.SMS.QueueSize)
		log.InfoContext(ctx, "notification queue backed by redis", "key", cfg.Redis.QueueKey)
	}

	pubOpts := []publisher.Option{
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(cfg.Activity.AsyncBuffer),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic)
		if err != nil {
			return fmt.Errorf("activity kafka sink: %w", err)
		}
		defer sink.Close()
		if err := sink.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			log.WarnContext(ctx, "failed to ensure activity topic", "topic", cfg.Kafka.ActivityTopic, "error", err)
		}
		pubOpts = append(pubOpts, publisher.WithSink(sink))
	}
	activityLog := publisher.NewPublisher(st.activity, pubOpts...)
	defer activityLog.Close()

	gw, err := gateway.New(cfg.SMS, log)
	if err != nil {
		return err
	}
	notifier := dispatcher.New(queue, gw,
		dispatcher.WithLogger(log),
		dispatcher.WithMetrics(notifmetrics.New()),
		dispatcher.WithRateLimit(cfg.SMS.RatePerSecond, cfg.SMS.Burst),
		dispatcher.WithSendTimeout(cfg.SMS.SendTimeout),
	)

	docMetrics := docmetrics.New()
	templates, err := template.New(cfg.Documents.TemplatesDir,
		template.WithCache(cfg.Documents.CacheSize, cfg.Documents.CacheTTL),
		template.WithLogger(log),
		template.WithCacheObserver(docMetrics),
	)
	if err != nil {
		return err
	}
	files, err := generated.New(cfg.Documents.GeneratedDir)
	if err != nil {
		return err
	}

	documents := docservice.New(st.requests, st.citizens, templates, files,
		docservice.WithLogger(log),
		docservice.WithMetrics(docMetrics),
		docservice.WithAuditPublisher(activityLog),
		docservice.WithNotifier(notifier),
		docservice.WithTxRunner(st.tx),
	)
	profiles := citizenservice.New(st.citizens,
		citizenservice.WithLogger(log),
		citizenservice.WithAuditPublisher(activityLog),
	)
	images, err := announcementstore.NewImageStore(cfg.Announcements.ImagesDir)
	if err != nil {
		return err
	}
	announcements := announcementservice.New(st.announcements, images,
		announcementservice.WithLogger(log),
		announcementservice.WithAuditPublisher(activityLog),
	)
	dashboard := dashboardservice.New(st.requests, st.citizens, announcements,
		dashboardservice.WithLogger(log),
	)
	activity := activityservice.New(st.activity,
		activityservice.WithLogger(log),
		activityservice.WithRetention(cfg.Activity.Retention),
		activityservice.WithAuditPublisher(activityLog),
	)

	router := newRouter(routerDeps{
		cfg:           cfg,
		log:           log,
		metrics:       metrics.New(),
		validator:     jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)),
		documents:     documents,
		profiles:      profiles,
		activity:      activity,
		announcements: announcements,
		dashboard:     dashboard,
		health:        healthChecks(st.db, rdb),
	})
	srv := httpserver.New(cfg.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting barangay API", "addr", cfg.Addr, "sms_provider", gw.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error { return templates.Watch(gctx) })
	g.Go(func() error { return activity.RunRetention(gctx, cfg.Activity.CleanupInterval) })

	err = g.Wait()
	log.Info("barangay API stopped", "error", err)
	return err
}

// healthChecks pings the optional backing services.
func healthChecks(db *sql.DB, rdb *redisclient.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
		}
		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
