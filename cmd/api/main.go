// Package main is the entry point for the travel planner API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cychmps426211/travelplan/api"
	"github.com/cychmps426211/travelplan/internal/config"
	"github.com/cychmps426211/travelplan/internal/covers"
	"github.com/cychmps426211/travelplan/internal/directions"
	"github.com/cychmps426211/travelplan/internal/handler"
	"github.com/cychmps426211/travelplan/internal/identity"
	"github.com/cychmps426211/travelplan/internal/middleware"
	"github.com/cychmps426211/travelplan/internal/repo"
	"github.com/cychmps426211/travelplan/internal/repo/fsstore"
	"github.com/cychmps426211/travelplan/internal/service"
	"github.com/cychmps426211/travelplan/internal/telemetry"
	"github.com/cychmps426211/travelplan/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Tracing ----------------------------------------------------------
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("tracing shutdown", "error", err)
		}
	}()

	// --- Firebase ---------------------------------------------------------
	// One app serves both the Firestore backend and ID-token sign-in.
	var fbApp *firebase.App
	if cfg.FirebaseProjectID != "" {
		fbApp, err = identity.NewFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsJSON)
		if err != nil {
			slog.Error("failed to initialise firebase", "error", err)
			os.Exit(1)
		}
	}

	// --- Store ------------------------------------------------------------
	store, closeStore, err := openStore(ctx, cfg, fbApp, logger)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("store ready", "backend", cfg.StoreBackend)

	// --- Identity ---------------------------------------------------------
	tokens, err := identity.NewTokenService(cfg.SessionSecret)
	if err != nil {
		slog.Error("invalid session secret", "error", err)
		os.Exit(1)
	}
	gate := identity.NewGate(identity.NewAllowList(cfg.AllowedEmails...), store.Users, store.Sessions, tokens, cfg.SessionTTL, logger)

	deps := handler.Deps{
		Trips:         service.NewTripService(store.Trips, store.TripWatch, logger),
		Activities:    service.NewActivityService(store.Activities, store.ActivityWatch, logger),
		Export:        service.NewExportService(store.Trips, store.Activities, cfg.Location()),
		Gate:          gate,
		Logger:        logger,
		Location:      cfg.Location(),
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.SecureCookies,
		OpenAPI:       api.OpenAPI,

		AllowedOrigins: cfg.CORSOrigins,
	}

	if cfg.GoogleSignIn() {
		deps.Google = identity.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}
	if fbApp != nil {
		verifier, err := identity.NewFirebaseVerifier(ctx, fbApp)
		if err != nil {
			slog.Error("failed to create firebase verifier", "error", err)
			os.Exit(1)
		}
		deps.Firebase = verifier
	}

	// --- Optional collaborators -------------------------------------------
	if cfg.GoogleMapsAPIKey != "" {
		resolver, err := directions.NewGoogleResolver(cfg.GoogleMapsAPIKey)
		if err != nil {
			slog.Error("failed to create directions client", "error", err)
			os.Exit(1)
		}
		deps.Directions = resolver
		deps.Maps = directions.NewEmbedder(cfg.GoogleMapsAPIKey)
	} else {
		slog.Warn("GOOGLE_MAPS_API_KEY not set; durations and map embeds disabled")
	}
	if cfg.S3Bucket != "" {
		uploader, err := covers.NewUploader(ctx, covers.Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			slog.Error("failed to create cover uploader", "error", err)
			os.Exit(1)
		}
		deps.Covers = uploader
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBodySize.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	srv := handler.NewServer(deps)
	r.Mount("/", srv.Routes(middleware.RequireSession(gate, logger)))

	// --- HTTP Server ------------------------------------------------------
	// No WriteTimeout: /stream holds its connection open and sets its own
	// per-frame write deadline.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}

// openStore connects the configured backend. Postgres migrations run
// before the store is returned.
func openStore(ctx context.Context, cfg config.Config, fbApp *firebase.App, logger *slog.Logger) (repo.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return repo.Store{}, nil, fmt.Errorf("firestore client: %w", err)
		}
		return fsstore.NewStore(client), func() { _ = client.Close() }, nil

	default:
		// pgxpool manages a pool of Postgres connections.
		// New() does not open connections immediately; the first query does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return repo.Store{}, nil, fmt.Errorf("create pool: %w", err)
		}
		// Verify the DB is reachable before accepting traffic.
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return repo.Store{}, nil, fmt.Errorf("ping: %w", err)
		}
		if err := migrate(ctx, pool); err != nil {
			pool.Close()
			return repo.Store{}, nil, err
		}

		// Live queries share one LISTEN connection held outside the pool.
		notifier := repo.NewNotifier(pool.Config().ConnConfig, logger)
		listenCtx, stopListening := context.WithCancel(context.WithoutCancel(ctx))
		listening := make(chan struct{})
		go func() {
			defer close(listening)
			if err := notifier.Run(listenCtx); err != nil {
				slog.Error("change listener stopped", "error", err)
			}
		}()
		closeFn := func() {
			stopListening()
			<-listening
			pool.Close()
		}
		return repo.NewPostgresStore(pool, notifier), closeFn, nil
	}
}

// migrate applies every pending embedded migration.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}
