package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	accstore "tradegate/internal/account/store"
	"tradegate/internal/audit"
	auditstore "tradegate/internal/audit/store"
	"tradegate/internal/auth"
	authhandler "tradegate/internal/auth/handler"
	"tradegate/internal/document"
	"tradegate/internal/document/artifact"
	docstore "tradegate/internal/document/store"
	"tradegate/internal/notification"
	notifstore "tradegate/internal/notification/store"
	notiftransport "tradegate/internal/notification/transport"
	"tradegate/internal/onboarding"
	onboardinghandler "tradegate/internal/onboarding/handler"
	"tradegate/internal/platform/config"
	"tradegate/internal/platform/httpserver"
	"tradegate/internal/platform/kafka"
	"tradegate/internal/platform/logger"
	"tradegate/internal/platform/metrics"
	platformredis "tradegate/internal/platform/redis"
	"tradegate/internal/token"
	tokenstore "tradegate/internal/token/store"
	httptransport "tradegate/internal/transport/http"
	"tradegate/migrations"
	txcontext "tradegate/pkg/platform/tx"
)

const (
	notificationInterval = 30 * time.Second
	shutdownTimeout      = 10 * time.Second
)

// main wires dependencies and runs the server plus its background workers.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment)

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Stores fall back to memory when no database is configured, which keeps
	// local development dependency-free.
	var (
		accounts      accstore.Store
		documents     docstore.Store
		notifications notification.Store
		auditOutbox   audit.Store
		tokens        token.TokenStore
		runner        txcontext.Runner
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := migrations.Apply(ctx, db); err != nil {
			return err
		}
		accounts = accstore.NewPostgres(db)
		documents = docstore.NewPostgres(db)
		notifications = notifstore.NewPostgres(db)
		auditOutbox = auditstore.NewPostgres(db)
		tokens = tokenstore.NewPostgresTokenStore(db)
		runner = txcontext.NewSQLRunner(db)
		log.Info("using postgres stores")
	} else {
		accounts = accstore.NewInMemory()
		documents = docstore.NewInMemory()
		notifications = notifstore.NewInMemory()
		auditOutbox = auditstore.NewInMemory()
		tokens = tokenstore.NewInMemoryTokenStore()
		runner = txcontext.NopRunner{}
		log.Warn("no DATABASE_URL set, using in-memory stores")
	}

	var codes token.CodeStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		codes = tokenstore.NewRedisCodeStore(redisClient.Client)
		log.Info("using redis code store")
	} else {
		codes = tokenstore.NewInMemoryCodeStore()
		log.Warn("no REDIS_URL set, using in-memory code store")
	}

	artifacts, err := artifact.NewLocalStorage(cfg.ArtifactDir)
	if err != nil {
		return err
	}

	issuer := token.NewIssuer(codes, tokens, cfg.CodeTTL)
	dispatcher, err := notification.NewDispatcher(
		notifications, notiftransport.NewSMTP(cfg.SMTP),
		notification.WithLogger(log), notification.WithMetrics(m),
		notification.WithSendTimeout(cfg.SMTP.SendTimeout),
	)
	if err != nil {
		return err
	}
	auditor := audit.NewPublisher(auditOutbox)
	sessions := auth.NewJWTSessions(cfg.JWTSigningKey, cfg.SessionTTL)

	docService, err := document.New(documents, artifacts,
		document.WithLogger(log), document.WithMetrics(m))
	if err != nil {
		return err
	}
	onboardingService, err := onboarding.New(
		accounts, docService, documents, issuer, auth.NewBcryptHasher(), dispatcher, auditor, runner,
		onboarding.WithLogger(log), onboarding.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	authService, err := auth.New(
		accounts, issuer, auth.NewBcryptHasher(), sessions, dispatcher, auditor, runner,
		auth.WithLogger(log), auth.WithResetTTL(cfg.ResetTokenTTL),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Onboarding: onboardinghandler.New(onboardingService, sessions, log),
		Auth:       authhandler.New(authService, log),
		Sessions:   sessions,
		Logger:     log,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting tradegate", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return notification.NewWorker(dispatcher, notificationInterval, log).Run(ctx)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		relay := audit.NewWorker(auditOutbox, producer, cfg.OutboxInterval,
			audit.WithWorkerLogger(log), audit.WithTopic(cfg.Kafka.Topic))
		g.Go(func() error {
			return relay.Run(ctx)
		})
	} else {
		log.Warn("no KAFKA_BROKERS set, audit events stay in the outbox")
	}

	g.Go(func() error {
		return runRetentionSweep(ctx, docService, cfg, log)
	})

	return g.Wait()
}

// runRetentionSweep purges rejected documents past the retention window.
func runRetentionSweep(ctx context.Context, docs *document.Service, cfg config.Config, log *slog.Logger) error {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			swept, err := docs.RetentionSweep(ctx, cfg.RetentionMaxAge)
			if err != nil {
				log.ErrorContext(ctx, "retention sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				log.InfoContext(ctx, "retention sweep completed", "documents_removed", swept)
			}
		}
	}
}
