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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"jobtrackr/internal/auth"
	"jobtrackr/internal/authstate"
	"jobtrackr/internal/config"
	"jobtrackr/internal/consul"
	"jobtrackr/internal/database"
	"jobtrackr/internal/email"
	kafkapkg "jobtrackr/internal/kafka"
	"jobtrackr/internal/logger"
	"jobtrackr/internal/middleware"
	"jobtrackr/internal/resume"
	"jobtrackr/internal/session"
	"jobtrackr/internal/storage"
)

func main() {
	lgr := logger.New("api")
	logger.SetDefault(lgr)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	lgr.Info("starting API service",
		"port", cfg.Port,
		"redis", cfg.RedisAddr,
		"s3", cfg.S3Endpoint,
		"kafka_enabled", cfg.EnableKafka)

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		lgr.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	lgr.Info("connected to database")

	store := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	sessionMgr := session.NewManager(store)
	lgr.Info("connected to Redis")

	objectStore, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, lgr)
	if err != nil {
		lgr.Error("failed to initialize object storage", "error", err)
		os.Exit(1)
	}
	lgr.Info("connected to object storage", "bucket", cfg.S3Bucket)

	bus := authstate.NewBus()
	defer bus.Close()

	// Log auth transitions for the lifetime of the process.
	go func() {
		events, cancel := bus.Subscribe()
		defer cancel()
		for ev := range events {
			lgr.Debug("auth state changed", "state", ev.State.String(), "user_id", ev.UserID)
		}
	}()

	// Reset links go through Kafka when a broker is configured, directly
	// through the sender otherwise.
	emailSender := email.NewSender(email.NewConfig())
	var mailer auth.ResetMailer = auth.NewDirectMailer(emailSender)
	if cfg.EnableKafka && cfg.KafkaBrokers != "" {
		kafkaConfig, err := kafkapkg.LoadConfig()
		if err != nil {
			lgr.Warn("failed to load Kafka config, sending email directly", "error", err)
		} else {
			producer, err := kafkapkg.NewProducer(kafkaConfig, lgr)
			if err != nil {
				lgr.Warn("failed to create Kafka producer, sending email directly", "error", err)
			} else {
				defer producer.Close()
				mailer = auth.NewKafkaMailer(producer, kafkaConfig.EmailEventsTopic)
				lgr.Info("Kafka producer initialized", "brokers", cfg.KafkaBrokers)
			}
		}
	}

	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, sessionMgr, bus, store, mailer, lgr, auth.Options{
		AppURL:              cfg.AppURL,
		RequireVerification: cfg.RequireEmailVerification,
	})
	authHandler := auth.NewHandler(authService, lgr)

	resumeRepo := resume.NewRepository(db)
	resumeService := resume.NewService(resumeRepo, objectStore, lgr)
	resumeHandler := resume.NewHandler(resumeService, lgr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(lgr))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AppURL, "http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	requireSession := middleware.SessionAuth(sessionMgr)
	auth.RegisterRoutes(r, authHandler, requireSession)
	resume.RegisterRoutes(r, resumeHandler, requireSession)

	// Consul registration is optional; skip it when no agent is configured.
	var consulClient *consul.Client
	serviceID := fmt.Sprintf("jobtrackr-api-%s", cfg.Host)
	if cfg.ConsulAddr != "" {
		consulClient, err = consul.NewClient(cfg.ConsulAddr, cfg.ConsulToken)
		if err != nil {
			lgr.Error("failed to create Consul client", "error", err)
			os.Exit(1)
		}

		// Clean up any registration left over from a previous crash.
		_ = consulClient.Deregister(serviceID)

		err = consulClient.Register(&consul.ServiceConfig{
			ID:      serviceID,
			Name:    "jobtrackr-api",
			Address: cfg.Host,
			Port:    mustAtoi(cfg.Port),
			Tags:    []string{"api", "auth", "resumes"},
			Check: &consul.HealthCheck{
				HTTP:     fmt.Sprintf("http://%s:%s/health", cfg.Host, cfg.Port),
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

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		lgr.Info("API service listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lgr.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lgr.Info("shutting down API service")

	if consulClient != nil {
		if err := consulClient.Deregister(serviceID); err != nil {
			lgr.Warn("failed to deregister from Consul", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		lgr.Error("server forced to shutdown", "error", err)
	}

	lgr.Info("API service stopped")
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("invalid integer: %s", s))
	}
	return i
}
