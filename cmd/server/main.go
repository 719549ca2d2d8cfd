// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashgg/internal/config"
	"dashgg/internal/kv"
	kvrepository "dashgg/internal/kv/repository"
	linkpaysservice "dashgg/internal/linkpays/service"
	linkpayshttp "dashgg/internal/linkpays/transport/http"
	"dashgg/internal/metrics"
	panelservice "dashgg/internal/pterodactyl/service"
	renewalservice "dashgg/internal/renewal/service"
	renewalhttp "dashgg/internal/renewal/transport/http"
	"dashgg/internal/scheduler"
	shortenerservice "dashgg/internal/shortener/service"
	userrepository "dashgg/internal/user/repository"
	userservice "dashgg/internal/user/service"
	userhttp "dashgg/internal/user/transport/http"
	"dashgg/pkg/db"
	"dashgg/pkg/middleware"
)

var server *http.Server

func main() {
	fmt.Println("dashgg API starting...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}
	fmt.Println("Config loaded")

	metrics.InitMetrics()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	if err := db.EnsureSchema(context.Background(), database); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	log.Println("Database connected")

	store, err := newStore(cfg, database)
	if err != nil {
		log.Fatalf("KV store init failed: %v", err)
	}
	log.Printf("KV backend: %s", cfg.KV.Backend)
	locks := kv.NewLocks()

	// --- СЛОИ ---
	panel := panelservice.NewPanelHTTPClient(cfg.Panel.Domain, cfg.Panel.APIKey, cfg.Panel.PageSize)

	userRepo := userrepository.NewPostgresUserRepository(sqlx.NewDb(database, "postgres"))
	userService := userservice.NewUserService(userRepo, panel)
	userHandler := userhttp.NewHandler(userService, store, cfg.JWTSecret)

	renewalService := renewalservice.NewService(store, locks, panel, renewalservice.Settings{
		Enabled:   cfg.Renewals.Enabled,
		DelayDays: cfg.Renewals.DelayDays,
		Cost:      cfg.Renewals.Cost,
	})
	renewalHandler := renewalhttp.NewRenewalHandler(renewalService)

	creds, err := shortenerservice.ParseCredentials(cfg.Linkpays.APIKeys)
	if err != nil {
		log.Fatalf("LINKPAYS_API_KEYS: %v", err)
	}
	shortener := shortenerservice.NewShortenerHTTPClient(cfg.Linkpays.ServiceURL, shortenerservice.NewCredentialPool(creds))
	log.Printf("Shortener: %s", shortener.Describe())
	if !shortener.Ready() {
		log.Println("Warning: no linkpays API keys configured, link generation will fail")
	}

	linkpaysService := linkpaysservice.NewService(store, locks, shortener, linkpaysservice.Settings{
		PublicURL:         cfg.PublicURL,
		AliasPrefix:       cfg.Linkpays.AliasPrefix,
		DailyLimit:        cfg.Linkpays.DailyLimit,
		Cooldown:          time.Duration(cfg.Linkpays.CooldownMinutes) * time.Minute,
		MinTimeToComplete: time.Duration(cfg.Linkpays.MinTimeToComplete) * time.Second,
		Coins:             cfg.Linkpays.Coins,
		CacheSize:         cfg.Linkpays.CacheSize,
		Location:          cfg.Location(),
	})
	linkpaysHandler := linkpayshttp.NewLinkpaysHandler(linkpaysService, cfg.SupportURL)

	// --- CRON ---
	cron := scheduler.New()
	cron.Register(cfg.Renewals.SweepInterval, scheduler.Func("renewal.sweep", renewalService.Enabled, renewalService.Sweep))

	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cron.Start(rootCtx)

	// --- РОУТЕР ---
	// Mounted after auth in each group so signed-in traffic is keyed by user.
	limiter := middleware.NewRateLimiter(120, time.Minute)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.MetricsMiddleware)

	r.Get("/health", healthHandler(panel.GetCircuitBreaker(), shortener.GetCircuitBreaker()))

	if cfg.MetricsUser != "" {
		r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())
	} else {
		log.Println("Warning: METRICS_USER not set, /metrics disabled")
	}

	r.Group(func(ar chi.Router) {
		ar.Use(limiter.Middleware)
		ar.Use(middleware.ValidateRequest)
		ar.Post("/auth/register", userHandler.Register)
		ar.Post("/auth/login", userHandler.Login)
	})

	// 🔐 API
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))
		pr.Use(limiter.Middleware)
		pr.Get("/api/me", userHandler.Me)
		pr.Get("/api/renewalstatus", renewalHandler.Status)
	})

	// 🔐 Страницы: без сессии редирект на логин
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuthRedirect(cfg.JWTSecret, "/login"))
		pr.Use(limiter.Middleware)
		pr.Get("/renew", renewalHandler.Renew)
		pr.Get("/linkpays/generate", linkpaysHandler.Generate)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.JWTAuthRedirect(cfg.JWTSecret, "/"))
		pr.Use(limiter.Middleware)
		pr.Get("/linkpays/redeem/", linkpaysHandler.Redeem)
		pr.Get("/linkpays/redeem/{code}", linkpaysHandler.Redeem)
	})

	server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server running on %s", cfg.HTTPAddr)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("Shutdown signal received, starting graceful shutdown")
		cancel()
		cron.Stop()
		limiter.Stop()
		shutdownServer()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	database.Close()
}

func newStore(cfg *config.Config, database *sql.DB) (kv.Store, error) {
	switch cfg.KV.Backend {
	case "dynamo":
		return kvrepository.NewDynamoStore(cfg.KV.AWSRegion, cfg.KV.DynamoTable)
	case "memory":
		log.Println("Warning: memory KV backend, balances are lost on restart")
		return kvrepository.NewMemoryStore(), nil
	default:
		return kvrepository.NewPostgresStore(database), nil
	}
}

func shutdownServer() {
	log.Println("Starting server shutdown process")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped")
}
