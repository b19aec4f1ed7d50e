package main

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
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront-service/internal/archive"
	"github.com/fjod/go_cart/storefront-service/internal/cache"
	"github.com/fjod/go_cart/storefront-service/internal/consumer"
	h "github.com/fjod/go_cart/storefront-service/internal/http"
	"github.com/fjod/go_cart/storefront-service/internal/logger"
	"github.com/fjod/go_cart/storefront-service/internal/publisher"
	"github.com/fjod/go_cart/storefront-service/internal/repository"
	"github.com/fjod/go_cart/storefront-service/internal/service"
	"github.com/fjod/go_cart/storefront-service/internal/slip"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg := loadConfig()

	slog.SetDefault(logger.New(os.Stdout, cfg.LogLevel, "storefront"))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()
	var closers []io.Closer

	store, err := openStore(cfg)
	if err != nil {
		fatal("failed to open store", err)
	}
	closers = append(closers, store)

	cartCache, err := openCache(ctx, cfg, &closers)
	if err != nil {
		fatal("failed to connect to redis", err)
	}

	slips, err := openArchive(ctx, cfg, &closers)
	if err != nil {
		fatal("failed to connect to mongodb", err)
	}

	var events service.EventPublisher = publisher.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := publisher.NewKafkaPublisher(cfg.KafkaBrokers...)
		closers = append(closers, kafkaPublisher)
		events = kafkaPublisher
		slog.Info("publishing order events to kafka", "brokers", cfg.KafkaBrokers, "topic", publisher.TopicOrderCompleted)
	}

	renderer, err := newSlipRenderer(cfg)
	if err != nil {
		fatal("failed to build slip renderer", err)
	}

	catalogService := service.NewCatalogService(store)
	cartService := service.NewCartService(store, store, cartCache)
	checkoutService := service.NewCheckoutService(store, store, cartCache, renderer, slips, events)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	// without an archive every event would only re-render and drop the slip
	if len(cfg.KafkaBrokers) > 0 && cfg.MongoURI != "" {
		slipConsumer := consumer.NewConsumer(checkoutService, cfg.KafkaBrokers...)
		closers = append(closers, slipConsumer)
		go slipConsumer.Run(workerCtx)
		slog.Info("slip archiver consuming order events", "group", consumer.GroupSlipArchiver)
	}

	router := h.NewRouter(h.RouterConfig{
		Catalog:      h.NewCatalogHandler(catalogService, cfg.RequestTimeout),
		Cart:         h.NewCartHandler(cartService, cfg.RequestTimeout),
		Orders:       h.NewOrdersHandler(checkoutService, cfg.RequestTimeout),
		Timeout:      cfg.RequestTimeout,
		MaxBodyBytes: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront.http"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC only serves health probes and reflection
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		fatal("failed to listen", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	go func() {
		slog.Info("grpc health server listening", "port", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			fatal("grpc server error", err)
		}
	}()

	go func() {
		slog.Info("storefront starting", "port", cfg.HTTPPort, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down storefront...")
	healthServer.Shutdown()
	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server forced to shutdown", "error", err)
	}
	grpcServer.GracefulStop()

	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}

	slog.Info("storefront stopped")
}

func openStore(cfg *Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		store := repository.NewMemoryStore()
		store.SeedDemo()
		slog.Warn("using in-memory store with demo data; nothing is persisted")
		return store, nil
	case StoreDriverPostgres:
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			MigrationsDirPath: cfg.MigrationsPath,
		}

		repo, err := repository.NewRepository(creds)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(creds); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func openCache(ctx context.Context, cfg *Config, closers *[]io.Closer) (cache.CartCache, error) {
	if cfg.RedisAddr == "" {
		slog.Info("cart cache disabled")
		return cache.NoopCache{}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		redisClient.Close()
		return nil, err
	}
	*closers = append(*closers, redisClient)
	slog.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	return cache.NewRedisCache(redisClient), nil
}

func openArchive(ctx context.Context, cfg *Config, closers *[]io.Closer) (archive.SlipArchive, error) {
	if cfg.MongoURI == "" {
		slog.Info("slip archive disabled")
		return archive.NoopArchive{}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	mongoDB, err := archive.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, closerFunc(func() error {
		return mongoDB.Client().Disconnect(context.Background())
	}))

	slips := archive.NewMongoArchive(mongoDB)
	if err := slips.CreateIndexes(connectCtx); err != nil {
		return nil, fmt.Errorf("create slip archive indexes: %w", err)
	}
	slog.Info("connected to mongodb", "db", cfg.MongoDBName)

	return slips, nil
}

// newSlipRenderer puts wkhtmltopdf behind a circuit breaker and falls back to
// the built-in PDF writer.
func newSlipRenderer(cfg *Config) (*slip.Chain, error) {
	htmlRenderer, err := slip.NewHTMLRenderer(cfg.WkhtmltopdfPath)
	if err != nil {
		return nil, err
	}

	return slip.NewChain(
		slip.NewBreakerRenderer(htmlRenderer, cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
		slip.NewPDFRenderer(),
	), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
