package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Simplici0/campbill/internal/billing"
	"github.com/Simplici0/campbill/internal/config"
	"github.com/Simplici0/campbill/internal/db"
	"github.com/Simplici0/campbill/internal/migrations"
	"github.com/Simplici0/campbill/internal/pricing"
	"github.com/Simplici0/campbill/internal/seed"
	"github.com/Simplici0/campbill/internal/store"
)

const maxUploadBytes = 10 << 20

type server struct {
	auth    *authService
	db      *sql.DB
	store   *store.SQLite
	catalog *pricing.Catalog
	numbers *billing.Generator
	billing *billing.Service
}

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}

	catalog := pricing.DefaultCatalog()
	stats, err := seed.Run(database, seed.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Catalog:       catalog,
	})
	if err != nil {
		log.Fatalf("failed to seed database: %v", err)
	}
	if cfg.IsDev() {
		log.Printf("seed: %d inserts, %d updates", stats.Inserts, stats.Updates)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sequence, closeSequence, err := openSequence(ctx, cfg, database)
	if err != nil {
		log.Fatalf("failed to open billing sequence: %v", err)
	}
	defer closeSequence()
	log.Printf("billing sequence backend: %s", cfg.SequenceBackend)

	srv := newServer(database, cfg.SessionSecret, catalog, billing.NewGenerator(cfg.BillingPrefix, sequence))

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}

func newServer(database *sql.DB, sessionSecret string, catalog *pricing.Catalog, numbers *billing.Generator) *server {
	st := store.NewSQLite(database)
	return &server{
		auth:    newAuthService(database, sessionSecret),
		db:      database,
		store:   st,
		catalog: catalog,
		numbers: numbers,
		billing: billing.NewService(catalog, st, numbers, st).WithCoupons(st),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/rates", s.handleListRates)
			r.Put("/rates/{service}", s.handleUpsertRate)
			r.Post("/costs", s.handleCosts)
			r.Post("/summary", s.handleSummary)
			r.Post("/billing", s.handleSubmitBilling)
			r.Get("/billing", s.handleListBilling)
			r.Get("/billing/{number}", s.handleGetBilling)
			r.Post("/cases/import", s.handleImportCases)
			r.Get("/coupons", s.handleListCoupons)
			r.Get("/coupons/{code}", s.handleValidateCoupon)
			r.Put("/coupons/{code}", s.handleUpsertCoupon)
		})
	})

	return r
}

// openSequence returns the billing counter selected by cfg and a function
// releasing its connections.
func openSequence(ctx context.Context, cfg config.Config, database *sql.DB) (billing.SequenceStore, func(), error) {
	switch cfg.SequenceBackend {
	case config.SequencePostgres:
		pool, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		seq := store.NewPostgresSequence(pool, store.DefaultSequence)
		if err := seq.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return seq, pool.Close, nil

	case config.SequenceRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		return store.NewRedisSequence(client, store.DefaultSequence), func() { _ = client.Close() }, nil

	default:
		return store.NewSQLiteSequence(database, store.DefaultSequence), func() {}, nil
	}
}
