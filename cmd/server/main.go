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

	"golang.org/x/sync/errgroup"

	"xs2acms/internal/audit"
	consenthandler "xs2acms/internal/consent/handler"
	consentmetrics "xs2acms/internal/consent/metrics"
	consentservice "xs2acms/internal/consent/service"
	consentstore "xs2acms/internal/consent/store"
	paymenthandler "xs2acms/internal/payment/handler"
	paymentmetrics "xs2acms/internal/payment/metrics"
	paymentservice "xs2acms/internal/payment/service"
	paymentstore "xs2acms/internal/payment/store"
	"xs2acms/internal/platform/config"
	"xs2acms/internal/platform/database"
	"xs2acms/internal/platform/health"
	platformkafka "xs2acms/internal/platform/kafka"
	"xs2acms/internal/platform/kafka/consumer"
	"xs2acms/internal/platform/kafka/producer"
	"xs2acms/internal/platform/logger"
	"xs2acms/internal/platform/metrics"
	platformredis "xs2acms/internal/platform/redis"
	"xs2acms/internal/platform/tracer"
	"xs2acms/internal/sca/authorisation"
	"xs2acms/internal/sca/decoupled"
	"xs2acms/internal/sca/machine"
	"xs2acms/internal/sca/redirect"
	scastore "xs2acms/internal/sca/store"
	httptransport "xs2acms/internal/transport/http"
	"xs2acms/internal/workers/expiry"
	"xs2acms/pkg/platform/circuit"
	"xs2acms/pkg/platform/middleware/request"
	"xs2acms/pkg/secrets"
)

const redirectIssuer = "xs2acms"

// infra holds the connections opened at startup so they can be closed in order.
type infra struct {
	db       *database.Pool
	redis    *platformredis.Client
	producer *producer.Producer
	admin    *platformkafka.Admin
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("kafka producer close failed", "error", err)
		}
	}
	if i.admin != nil {
		i.admin.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()
	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing xs2a consent management",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
		"kafka", cfg.Kafka.Brokers != "",
	)

	procMetrics := metrics.New()
	procMetrics.SetBuildInfo(health.Version, cfg.Environment)
	healthHandler := health.New(cfg.Environment, health.WithObserver(procMetrics))
	tr := tracer.NewOTel()

	var deps infra
	defer deps.close(log)
	if err := connect(ctx, cfg, log, &deps, healthHandler); err != nil {
		return err
	}

	auditor := buildAuditPublisher(cfg, log, &deps)
	defer auditor.Close()

	profile := authorisation.Profile{
		RedirectURLExpiration:             cfg.Profile.RedirectURLExpiration,
		CancellationRedirectURLExpiration: cfg.Profile.CancellationRedirectURLExpiration,
		AuthorisationExpiration:           cfg.Profile.AuthorisationExpiration,
	}
	scaMachine := machine.New()
	signer, err := redirectSigner(cfg, log)
	if err != nil {
		return err
	}

	consentStores, consentTx, paymentStores, paymentTx := buildStores(&deps, procMetrics)

	consentSvc := consentservice.NewService(consentStores, consentTx,
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithTracer(tr),
		consentservice.WithAuditPublisher(auditor),
		consentservice.WithProfile(profile),
		consentservice.WithNotConfirmedExpiration(cfg.Profile.NotConfirmedConsentExpiration),
		consentservice.WithMaxValidityDays(cfg.Profile.MaxConsentValidityDays),
		consentservice.WithMachine(scaMachine),
		consentservice.WithRedirectSigner(signer),
	)
	paymentSvc := paymentservice.NewService(paymentStores, paymentTx,
		paymentservice.WithLogger(log),
		paymentservice.WithMetrics(paymentmetrics.New()),
		paymentservice.WithTracer(tr),
		paymentservice.WithAuditPublisher(auditor),
		paymentservice.WithProfile(profile),
		paymentservice.WithNotConfirmedExpiration(cfg.Profile.NotConfirmedPaymentExpiration),
		paymentservice.WithMachine(scaMachine),
		paymentservice.WithRedirectSigner(signer),
	)

	sweeper, err := expiry.New(consentSvc, paymentSvc, consentStores.Authorisations,
		expiry.WithInterval(cfg.ExpirySweepInterval),
		expiry.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:            log,
		Consents:          consenthandler.New(consentSvc, log),
		Payments:          paymenthandler.New(paymentSvc, log),
		Health:            healthHandler,
		DefaultInstanceID: cfg.DefaultInstanceID,
		RequestMetrics:    request.NewMetrics(),
		ServeMetrics:      true,
	})
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var notifications *consumer.Consumer
	if cfg.Kafka.Brokers != "" {
		handler := decoupled.NewHandler(
			consentDecoupledAdapter{svc: consentSvc},
			paymentDecoupledAdapter{svc: paymentSvc},
			decoupled.WithLogger(log),
			decoupled.WithTracer(tr),
		)
		notifications, err = consumer.New(consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroup,
			Topics:  []string{cfg.Kafka.DecoupledTopic},
		}, handler, log)
		if err != nil {
			return err
		}
		healthHandler.RegisterCheck("kafka_consumer", notifications.Health)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := sweeper.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if deps.redis != nil {
		g.Go(func() error {
			deps.redis.ReportPoolStats(gctx, 15*time.Second)
			return nil
		})
	}
	if notifications != nil {
		notifications.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var errs []error
		if notifications != nil {
			errs = append(errs, notifications.Stop(shutdownCtx))
		}
		errs = append(errs, srv.Shutdown(shutdownCtx))
		return errors.Join(errs...)
	})

	return g.Wait()
}

// connect opens the configured infrastructure and registers readiness checks.
func connect(ctx context.Context, cfg config.Server, log *slog.Logger, deps *infra, h *health.Handler) error {
	var err error
	if cfg.Database.URL != "" {
		deps.db, err = database.New(database.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		h.RegisterCheck("postgres", deps.db.Health)
		log.Info("connected to postgres")
	}

	deps.redis, err = platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if deps.redis != nil {
		h.RegisterCheck("redis", deps.redis.Health)
		log.Info("connected to redis")
	}

	if cfg.Kafka.Brokers == "" {
		return nil
	}
	deps.admin, err = platformkafka.NewAdmin(cfg.Kafka.Brokers)
	if err != nil {
		return err
	}
	if err := deps.admin.EnsureTopics(ctx, 3, cfg.Kafka.EventsTopic, cfg.Kafka.DecoupledTopic); err != nil {
		log.Warn("could not ensure kafka topics", "error", err)
	}
	h.RegisterCheck("kafka", deps.admin.Health)

	pcfg := producer.DefaultConfig()
	pcfg.Brokers = cfg.Kafka.Brokers
	pcfg.Acks = cfg.Kafka.Acks
	deps.producer, err = producer.New(pcfg, log)
	if err != nil {
		return err
	}
	log.Info("connected to kafka", "brokers", cfg.Kafka.Brokers)
	return nil
}

// buildAuditPublisher sends lifecycle events to Kafka when configured and to
// the log otherwise, or while Kafka keeps failing.
func buildAuditPublisher(cfg config.Server, log *slog.Logger, deps *infra) *audit.Publisher {
	var sink audit.Store = audit.NewLogStore(log)
	if deps.producer != nil {
		sink = audit.NewFallbackStore(
			audit.NewKafkaStore(deps.producer, cfg.Kafka.EventsTopic),
			sink,
			circuit.New("audit_kafka", circuit.WithCooldown(30*time.Second)),
			log,
		)
	}
	return audit.NewPublisher(sink,
		audit.WithAsyncBuffer(1024),
		audit.WithPublisherLogger(log),
	)
}

// buildStores picks postgres when a database is configured. Without one the
// entities stay in memory and authorisations go to Redis when available.
func buildStores(deps *infra, m *metrics.Metrics) (consentservice.Stores, consentservice.ConsentStoreTx, paymentservice.Stores, paymentservice.PaymentStoreTx) {
	if deps.db != nil {
		db := deps.db.DB()
		auths := scastore.NewPostgres(db)
		consents := consentservice.Stores{Consents: consentstore.NewPostgres(db), Authorisations: auths}
		payments := paymentservice.Stores{Payments: paymentstore.NewPostgres(db), Authorisations: auths}
		for _, entity := range []string{"consent", "payment", "authorisation"} {
			m.SetStoreBackend(entity, "postgres")
		}
		return consents, newConsentPostgresTx(db), payments, newPaymentPostgresTx(db)
	}

	var auths interface {
		consentservice.AuthorisationStore
		paymentservice.AuthorisationStore
	}
	if deps.redis != nil {
		auths = scastore.NewRedis(deps.redis.Client)
		m.SetStoreBackend("authorisation", "redis")
	} else {
		auths = scastore.NewInMemory()
		m.SetStoreBackend("authorisation", "memory")
	}
	m.SetStoreBackend("consent", "memory")
	m.SetStoreBackend("payment", "memory")

	consents := consentservice.Stores{Consents: consentstore.New(), Authorisations: auths}
	payments := paymentservice.Stores{Payments: paymentstore.New(), Authorisations: auths}
	return consents, consentservice.NewInMemoryTx(consents), payments, paymentservice.NewInMemoryTx(payments)
}

// redirectSigner signs redirect IDs with the configured key. Outside
// production a missing key is replaced by a random one, so redirect IDs do
// not survive a restart.
func redirectSigner(cfg config.Server, log *slog.Logger) (*redirect.Signer, error) {
	key := cfg.RedirectSigningKey
	if key == "" {
		generated, err := secrets.Generate()
		if err != nil {
			return nil, err
		}
		key = generated
		log.Warn("REDIRECT_SIGNING_KEY not set, using an ephemeral key")
	}
	return redirect.NewSigner(key, redirectIssuer), nil
}
