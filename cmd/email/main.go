package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"jobtrackr/internal/config"
	"jobtrackr/internal/consul"
	"jobtrackr/internal/email"
	kafkapkg "jobtrackr/internal/kafka"
	"jobtrackr/internal/logger"
)

func main() {
	lgr := logger.New("email-worker")
	logger.SetDefault(lgr)

	port := config.GetEnvOrDefault("EMAIL_WORKER_PORT", "8085")
	host := config.GetEnvOrDefault("EMAIL_WORKER_HOST", "localhost")
	consulAddr := os.Getenv("CONSUL_HTTP_ADDR")
	consulToken := os.Getenv("CONSUL_HTTP_TOKEN")
	redisAddr := config.GetEnvOrDefault("REDIS_ADDR", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	kafkaConfig, err := kafkapkg.LoadConfig()
	if err != nil {
		lgr.Error("failed to load Kafka config", "error", err)
		os.Exit(1)
	}

	lgr.Info("starting email worker",
		"port", port,
		"redis", redisAddr,
		"kafka", kafkaConfig.Brokers,
		"topic", kafkaConfig.EmailEventsTopic)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       0,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		lgr.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	lgr.Info("connected to Redis")

	idempotencyStore := email.NewIdempotencyStore(redisClient, lgr)

	emailSender := email.NewSender(email.NewConfig())

	consumer, err := email.NewConsumer(&email.ConsumerConfig{
		Brokers:       kafkaConfig.Brokers,
		Topic:         kafkaConfig.EmailEventsTopic,
		DLQTopic:      kafkaConfig.EmailDLQTopic,
		ConsumerGroup: kafkaConfig.ConsumerGroup,
		MaxRetries:    3,
	}, emailSender, idempotencyStore, lgr)
	if err != nil {
		lgr.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	consumeCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Start(consumeCtx); err != nil {
			lgr.Error("consumer error", "error", err)
		}
	}()

	// Small HTTP surface for health checks and monitoring.
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	handler := email.NewHandler(redisClient, idempotencyStore, lgr)
	r.GET("/health", handler.HealthCheck)
	r.GET("/stats", handler.Stats)

	var consulClient *consul.Client
	serviceID := fmt.Sprintf("jobtrackr-email-%s", host)
	if consulAddr != "" {
		consulClient, err = consul.NewClient(consulAddr, consulToken)
		if err != nil {
			lgr.Error("failed to create Consul client", "error", err)
			os.Exit(1)
		}

		_ = consulClient.Deregister(serviceID)

		err = consulClient.Register(&consul.ServiceConfig{
			ID:      serviceID,
			Name:    "jobtrackr-email",
			Address: host,
			Port:    mustAtoi(port),
			Tags:    []string{"email", "kafka-consumer"},
			Check: &consul.HealthCheck{
				HTTP:     fmt.Sprintf("http://%s:%s/health", host, port),
				Interval: "10s",
				Timeout:  "3s",
			},
		})
		if err != nil {
			lgr.Error("failed to register with Consul", "error", err)
			os.Exit(1)
		}
		lgr.Info("registered with Consul", "service_id", serviceID)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	go func() {
		lgr.Info("email worker listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("shutting down email worker")

	if consulClient != nil {
		if err := consulClient.Deregister(serviceID); err != nil {
			lgr.Warn("failed to deregister from Consul", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lgr.Error("server forced to shutdown", "error", err)
	}

	lgr.Info("email worker stopped")
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("invalid integer: %s", s))
	}
	return i
}
