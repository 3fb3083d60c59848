package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/routeledger/backend/api/handler"
	"github.com/routeledger/backend/internal/catalog"
	"github.com/routeledger/backend/internal/config"
	"github.com/routeledger/backend/internal/events"
	"github.com/routeledger/backend/internal/infrastructure/blob"
	"github.com/routeledger/backend/internal/infrastructure/kafka"
	"github.com/routeledger/backend/internal/infrastructure/monitor"
	pgInfra "github.com/routeledger/backend/internal/infrastructure/postgres"
	redisInfra "github.com/routeledger/backend/internal/infrastructure/redis"
	"github.com/routeledger/backend/internal/middleware"
	"github.com/routeledger/backend/internal/router"
	"github.com/routeledger/backend/internal/services"
	"github.com/routeledger/backend/internal/services/lifecycle"
	"github.com/routeledger/backend/pkg/httpcontext"
	"github.com/routeledger/backend/pkg/logger"
	"github.com/routeledger/backend/repository/postgres"
	routeUC "github.com/routeledger/backend/usecase/route"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	imageStore, err := blob.Open(cfg.Images.Path, cfg.Images.PublicURL)
	if err != nil {
		zapLogger.Fatal("failed to open image store", zap.Error(err))
	}
	manager.Register("image_store", func(ctx context.Context) error {
		return imageStore.Close()
	})

	mon := monitor.New(pool, redisClient, imageStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	routeRepo := postgres.NewRouteRepository(pool)

	publisher, err := kafka.NewPublisher(cfg.Kafka, logger.Component(zapLogger, "publisher"))
	if err != nil {
		zapLogger.Fatal("kafka producer failed", zap.Error(err))
	}
	manager.Register("kafka_producer", func(ctx context.Context) error {
		return publisher.Close()
	})

	catalogClient := catalog.NewClient(cfg.Catalog, redisClient, logger.Component(zapLogger, "catalog"))

	routeUseCase := routeUC.New(
		routeRepo,
		routeRepo,
		catalogClient,
		imageStore,
		publisher,
		logger.Component(zapLogger, "saga"),
	)

	deduper := events.NewRedisDeduper(redisClient, 0)
	processor := events.NewProcessor(
		routeRepo,
		imageStore,
		catalogClient,
		deduper,
		logger.Component(zapLogger, "projector"),
	)

	consumer, err := kafka.NewConsumer(cfg.Kafka, processor, logger.Component(zapLogger, "consumer"))
	if err != nil {
		zapLogger.Fatal("kafka consumer failed", zap.Error(err))
	}
	go func() {
		if err := consumer.Start(appCtx); err != nil {
			zapLogger.Error("consumer stopped", zap.Error(err))
		}
	}()
	manager.Register("kafka_consumer", func(ctx context.Context) error {
		return consumer.Close()
	})

	if cfg.Janitor.Enabled {
		janitor := services.NewJanitor(imageStore, routeRepo, logger.Component(zapLogger, "janitor"), services.JanitorConfig{
			Interval: cfg.Janitor.Interval,
			MinAge:   cfg.Janitor.MinAge,
		})
		janitor.Start()
		manager.Register("janitor", func(ctx context.Context) error {
			janitor.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Route:  apiHandler.NewRouteHandler(routeUseCase, ctxAdapter, zapLogger),
		Image:  apiHandler.NewImageHandler(imageStore, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
