package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/nadhifra/storefront-checkout/internal/cartstore"
	"github.com/nadhifra/storefront-checkout/internal/config"
	httphandler "github.com/nadhifra/storefront-checkout/internal/delivery/http"
	"github.com/nadhifra/storefront-checkout/internal/delivery/kafka"
	"github.com/nadhifra/storefront-checkout/internal/repository"
	"github.com/nadhifra/storefront-checkout/internal/tracing"
	"github.com/nadhifra/storefront-checkout/internal/usecase"
)

func main() {
	cfg := config.Load()

	pool, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(pool, "db/migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.New(pool)

	carts, closeCarts, err := initCartStore(cfg)
	if err != nil {
		log.Fatalf("Failed to init cart store: %v", err)
	}
	defer closeCarts()

	shutdownTracing, err := tracing.Init(cfg.TracingEnabled == "true", cfg.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to init tracing: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events usecase.OrderEventPublisher
	var kafkaClient *kgo.Client
	if cfg.EventDrivenEnabled == "true" {
		kafkaClient, err = kgo.NewClient(
			kgo.SeedBrokers(strings.Split(cfg.KafkaBrokers, ",")...),
			kgo.ClientID(cfg.KafkaClientID),
		)
		if err != nil {
			log.Fatalf("Failed to create kafka client: %v", err)
		}

		if err := kafka.EnsureTopics(ctx, kafkaClient, cfg); err != nil {
			log.Printf("Warning: failed to ensure topics: %v", err)
		}
		events = kafka.NewPublisher(kafkaClient)
	} else {
		events = kafka.NewLogPublisher()
	}

	checkout := usecase.NewCheckoutService(store, events)
	handler := httphandler.NewHandler(checkout, store, carts)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if cfg.TracingEnabled == "true" {
		r.Use(tracing.Middleware())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler.Routes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Starting server on port %s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	if kafkaClient != nil {
		kafkaClient.Close()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Shutdown complete")
}

func initDB(cfg *config.Config) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf(
		"postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

func initCartStore(cfg *config.Config) (cartstore.Store, func(), error) {
	if cfg.CartBackend == "memory" {
		return cartstore.NewMemoryStore(), func() {}, nil
	}

	redisStore, err := cartstore.NewRedisStore(
		cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDBNumber(), cfg.SnapshotTTL(),
	)
	if err != nil {
		return nil, nil, err
	}
	return redisStore, func() {
		if err := redisStore.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}, nil
}
