package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/household-energy-service/pkg/cache"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/config"
	"liyu1981.xyz/household-energy-service/pkg/db"
	householdGrpc "liyu1981.xyz/household-energy-service/pkg/grpc"
	"liyu1981.xyz/household-energy-service/pkg/household"
	householdHttp "liyu1981.xyz/household-energy-service/pkg/http"
	householdMqtt "liyu1981.xyz/household-energy-service/pkg/mqtt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}

// run returns instead of exiting so every deferred close runs on failure.
func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := common.GetLogger()
	defer common.SyncLogger()

	store, err := db.Open(cfg.Dialector())
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	var aggregateCache household.AggregateCache
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewAggregateCache(cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.TTL)
		defer redisCache.Close()

		aggregateCache = redisCache
		logger.Info("Aggregation cache enabled", zap.String("redis_addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	// one store for every transport, so a limiter set over REST also
	// throttles gRPC and MQTT ingestion
	limiterStore := household.NewRateLimiterStore(rate.Limit(cfg.Limiter.Rate), cfg.Limiter.Burst)

	core := household.NewCore(store, aggregateCache)
	core.Limiters = limiterStore

	defaultLimiter := zap.String("default_limiter",
		fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.Limiter.Rate, cfg.Limiter.Burst))

	serveErr := make(chan error, 2)

	var grpcServer *grpc.Server
	if cfg.GRPC.HostPort != "" {
		householdGrpcServer := &householdGrpc.HouseholdServer{
			Core:             core,
			RateLimiterStore: limiterStore,
		}
		interceptor := householdGrpcServer.CreateRateLimitInterceptor([]string{
			householdGrpc.MethodPostReading,
		})
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		householdGrpc.RegisterHouseholdServiceServer(grpcServer, householdGrpcServer)
		logger.Info("gRPC server created with:", defaultLimiter)

		listener, err := net.Listen("tcp", cfg.GRPC.HostPort)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.GRPC.HostPort, err)
		}

		go func() {
			logger.Info("Starting gRPC server on " + cfg.GRPC.HostPort)
			if err := grpcServer.Serve(listener); err != nil {
				serveErr <- fmt.Errorf("grpc server failed to serve: %w", err)
			}
		}()
		defer grpcServer.GracefulStop()
	}

	if cfg.MQTT.Broker != "" {
		subscriber := householdMqtt.NewSubscriber(householdMqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		}, core.Ingestor, limiterStore)
		if err := subscriber.Start(); err != nil {
			return fmt.Errorf("starting mqtt subscriber: %w", err)
		}
		defer subscriber.Stop()
	}

	rs := &householdHttp.RestfulServer{
		Server:           gin.Default(),
		Core:             core,
		RateLimiterStore: limiterStore,
	}
	rs.Setup()
	logger.Info("http server created with:", defaultLimiter)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.HostPort,
		Handler: rs.Server,
	}

	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTP.HostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http server failed to serve: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failure error
	select {
	case <-ctx.Done():
	case failure = <-serveErr:
		logger.Error("Server stopped unexpectedly", zap.Error(failure))
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	return failure
}
