package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/adapters/cache"
	"github.com/bhavishyjain/SevaAI/internal/adapters/calendar"
	eventadapter "github.com/bhavishyjain/SevaAI/internal/adapters/events"
	httpadapter "github.com/bhavishyjain/SevaAI/internal/adapters/http"
	"github.com/bhavishyjain/SevaAI/internal/adapters/memory"
	"github.com/bhavishyjain/SevaAI/internal/adapters/postgres"
	"github.com/bhavishyjain/SevaAI/internal/adapters/scheduler"
	"github.com/bhavishyjain/SevaAI/internal/application"
	"github.com/bhavishyjain/SevaAI/internal/ports"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	outbox     *eventadapter.OutboxWorker
	consumer   *eventadapter.ConsumerWorker
	escalator  *scheduler.EscalationWorker
	calendar   *calendar.FileSource
	cleanupFn  func(context.Context)
}

type storage struct {
	tickets ports.TicketRepository
	workers ports.WorkerRepository
	outbox  ports.OutboxRepository
	close   func()
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closerFunc(store.close))

	cacheStore := ports.Cache(cache.NewMemoryCache())
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			cleanup()
			return nil, redisErr
		}
		closers = append(closers, redisClient)
		cacheStore = cache.NewRedisCache(redisClient, cfg.CacheKeyPrefix)
	} else {
		logger.WarnContext(ctx, "REDIS_URL not set, using process-local cache",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "new_runtime",
			"outcome", "degraded",
		)
	}

	var calendarSource ports.CalendarSource = calendar.NewStaticSource()
	var fileSource *calendar.FileSource
	if cfg.CalendarFile != "" {
		fileSource, err = calendar.NewFileSource(cfg.CalendarFile, logger)
		if err != nil {
			cleanup()
			return nil, err
		}
		calendarSource = fileSource
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:       cfg.ServiceID,
			TicketIDPrefix:    cfg.TicketIDPrefix,
			MaxActiveTickets:  cfg.MaxActiveTickets,
			AnalyticsCacheTTL: cfg.AnalyticsCacheTTL,
			Location:          loc,
		},
		Logger:   logger,
		Tickets:  store.tickets,
		Workers:  store.workers,
		Outbox:   store.outbox,
		Cache:    cacheStore,
		Calendar: calendarSource,
	})

	handler := httpadapter.NewHandler(service, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	publisher := ports.EventPublisher(eventadapter.NewLogPublisher(logger))
	var consumerAdapter eventadapter.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, map[string]string{
			application.EventTicketCreated:           cfg.KafkaTopicTicketEvents,
			application.EventTicketStatusChanged:     cfg.KafkaTopicTicketEvents,
			application.EventTicketAssigned:          cfg.KafkaTopicTicketEvents,
			application.EventTicketPriorityEscalated: cfg.KafkaTopicTicketEvents,
			application.EventWorkerMetricsUpdated:    cfg.KafkaTopicWorkerEvents,
		})
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, logging dispatch events instead", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.KafkaTopicComplaintClassified},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, classifier events will not be consumed", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		health:     healthSrv,
		outbox:     eventadapter.NewOutboxWorker(logger, store.outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize),
		consumer:   eventadapter.NewConsumerWorker(logger, consumerAdapter, service, cacheStore, cfg.ConsumerPollInterval).WithDedupTTL(cfg.EventDedupTTL),
		escalator:  scheduler.NewEscalationWorker(logger, service, cacheStore, cfg.EscalationInterval, loc, nil),
		calendar:   fileSource,
		cleanupFn:  func(context.Context) { cleanup() },
	}, nil
}

func openStorage(ctx context.Context, cfg Config, logger *slog.Logger) (storage, error) {
	if cfg.DatabaseURL == "" {
		logger.WarnContext(ctx, "DB_URL not set, state is kept in memory and lost on restart",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "open_storage",
			"outcome", "degraded",
		)
		repos := memory.NewRepositories()
		return storage{
			tickets: repos.Tickets,
			workers: repos.Workers,
			outbox:  repos.Outbox,
			close:   func() {},
		}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return storage{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return storage{}, err
	}
	repos := postgres.NewRepositories(db)
	return storage{
		tickets: repos.Tickets,
		workers: repos.Workers,
		outbox:  repos.Outbox,
		close:   func() { _ = sqlDB.Close() },
	}, nil
}

func newLogger(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("service", cfg.ServiceID)
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

// RunAPI serves HTTP and gRPC health until a signal arrives. With
// EmbeddedWorkers set the background loops run in the same process.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		r.cleanupFn(ctx)
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if r.cfg.EmbeddedWorkers {
		r.startBackground(gctx, g)
	}
	r.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	r.logger.InfoContext(ctx, "api started",
		"module", "bootstrap",
		"layer", "runtime",
		"operation", "run_api",
		"http_port", r.cfg.HTTPPort,
		"grpc_port", r.cfg.GRPCPort,
		"embedded_workers", r.cfg.EmbeddedWorkers,
	)
	g.Go(func() error {
		<-gctx.Done()
		r.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.cfg.ShutdownTimeout)
		defer cancel()
		_ = r.httpServer.Shutdown(shutdownCtx)
		r.grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	r.cleanupFn(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(context.Background(), "runtime failure",
			"module", "bootstrap",
			"layer", "runtime",
			"operation", "run_api",
			"outcome", "failure",
			"error", err,
		)
		return err
	}
	return nil
}

// RunWorker runs the outbox relay, classifier consumer, escalation
// scheduler and calendar watcher until a signal arrives.
func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	r.startBackground(gctx, g)
	err := g.Wait()
	r.cleanupFn(context.Background())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runtime) startBackground(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error { return r.outbox.Run(ctx) })
	g.Go(func() error { return r.consumer.Run(ctx) })
	g.Go(func() error { return r.escalator.Run(ctx) })
	if r.calendar != nil {
		g.Go(func() error {
			if err := r.calendar.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "calendar watcher stopped, reloads disabled",
					"module", "bootstrap",
					"layer", "runtime",
					"operation", "watch_calendar",
					"outcome", "failure",
					"error", err,
				)
			}
			return nil
		})
	}
}
