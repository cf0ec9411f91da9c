package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cafe-pos/config"
	"cafe-pos/internal/api"
	"cafe-pos/internal/broker"
	"cafe-pos/internal/redisclient"
	"cafe-pos/internal/service"
	"cafe-pos/internal/store"
	"cafe-pos/internal/store/memstore"
	"cafe-pos/internal/util"
	"cafe-pos/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// repository is what the services and the readiness probe need from a store
type repository interface {
	service.ProductRepository
	service.SaleRepository
	api.Pinger
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting cafe-pos", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer("cafe-pos", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	var repo repository
	if cfg.Database.URL != "" {
		db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL, store.Options{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))
		repo = db
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		repo = memstore.New()
	}

	var idempotency service.IdempotencyStore
	var redisClient *redisclient.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Redis connected, idempotency keys enabled")
		idempotency = redisClient
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var publisher service.EventPublisher = service.NoopPublisher{}
	var stockWorker *worker.StockWorker
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSale)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSale, cfg.Kafka.ConsumerGroup)
		stockWorker = worker.NewStockWorker(consumer, cfg.Business.LowStockThreshold)
		go func() {
			if err := stockWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Stock worker error", zap.Error(err))
			}
		}()
	}

	loc := cfg.Business.Location()
	productService := service.NewProductService(repo)
	saleService := service.NewSaleService(repo, repo, publisher, idempotency, service.SaleServiceConfig{
		Location:       loc,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	})
	reportService := service.NewReportService(repo, loc, cfg.Business.TopProductsLimit)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(productService, saleService, reportService, repo)
	if redisClient != nil {
		handler.AddReadinessCheck("redis", redisClient)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if stockWorker != nil {
		if err := stockWorker.Stop(); err != nil {
			logger.Warn("Error stopping stock worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
