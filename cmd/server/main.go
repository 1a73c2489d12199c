package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	bolt "go.etcd.io/bbolt"

	"driveindex/internal/auth"
	"driveindex/internal/config"
	"driveindex/internal/handler"
	"driveindex/internal/indexing"
	"driveindex/internal/middleware"
	"driveindex/internal/picker"
	"driveindex/internal/remote"
	"driveindex/internal/session"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"provider", cfg.ConnectionProvider,
	)

	// Knowledge base indexing parameters (defaults unless overridden)
	indexingParams, err := config.LoadIndexingParams(cfg.IndexingParamsPath)
	if err != nil {
		log.Fatalf("Failed to load indexing parameters: %v", err)
	}

	// Durable session state, the localStorage analog
	store, err := session.NewFileStore(cfg.StatePath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher := session.NewWatcher(store, cfg.SessionPollInterval, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("session watcher unavailable", "error", err)
	}

	// Knowledge base ledger
	db, err := bolt.Open(cfg.LedgerPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Fatalf("Failed to open ledger database: %v", err)
	}
	defer db.Close()

	ledger, err := indexing.NewLedger(db)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	// Token verifier; fall back to expiry-only checking when the identity
	// service publishes no JWKS
	var verifier auth.TokenVerifier
	jwksVerifier, err := auth.NewJWKSVerifier(cfg.AuthJWKSURL, logger)
	if err != nil {
		logger.Warn("JWKS unavailable, falling back to expiry-only token checks", "error", err)
		verifier = auth.NewExpiryVerifier()
	} else {
		verifier = jwksVerifier
	}
	defer verifier.Close()

	// Remote service clients
	authClient := remote.NewAuthClient(cfg.AuthURL, cfg.APIURL, cfg.AuthAnonKey, logger)
	dirClient := remote.NewDirectoryClient(cfg.APIURL, cfg.ConnectionProvider, cfg.ConnectionLimit, logger)
	kbClient := remote.NewKnowledgeBaseClient(cfg.APIURL, logger)

	loginFlow := remote.NewLoginFlow(authClient, dirClient, verifier, store, logger)

	// Drop any persisted session whose token no longer verifies
	if valid, err := loginFlow.ValidateSession(); err != nil {
		logger.Warn("session validation failed", "error", err)
	} else if valid {
		logger.Info("restored persisted session")
	}

	// Core services
	state := picker.NewState()
	catalog := picker.NewCatalog(dirClient, kbClient, store, logger)
	resolver := indexing.NewResolver(store, kbClient, indexingParams, ledger, cfg.SyncTimeout, logger)
	coordinator := indexing.NewCoordinator(resolver, kbClient, store, catalog, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(loginFlow, store, logger)
	connectionsHandler := handler.NewConnectionsHandler(dirClient, store, logger)
	filesHandler := handler.NewFilesHandler(catalog, state, logger)
	indexHandler := handler.NewIndexHandler(coordinator, state, logger)
	kbHandler := handler.NewKnowledgeBaseHandler(kbClient, resolver, ledger, store, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", filesHandler.HealthCheck)

	// Auth routes
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/session", authHandler.Session)

	// Connection routes
	mux.HandleFunc("GET /api/connections", connectionsHandler.List)

	// File listing and picker routes
	mux.HandleFunc("GET /api/files", filesHandler.List)
	mux.HandleFunc("POST /api/files/navigate", filesHandler.Navigate)
	mux.HandleFunc("POST /api/files/breadcrumb", filesHandler.Breadcrumb)
	mux.HandleFunc("POST /api/files/select", filesHandler.Select)
	mux.HandleFunc("POST /api/files/selection/clear", filesHandler.ClearSelection)
	mux.HandleFunc("PUT /api/files/view", filesHandler.UpdateView)

	// Index mutation routes
	mux.HandleFunc("POST /api/index", indexHandler.Index)
	mux.HandleFunc("POST /api/deindex", indexHandler.DeIndex)
	mux.HandleFunc("DELETE /api/index/{id}", indexHandler.DeIndexOne)

	// Knowledge base routes
	mux.HandleFunc("GET /api/knowledge-base", kbHandler.Get)
	mux.HandleFunc("GET /api/knowledge-base/members", kbHandler.Members)
	mux.HandleFunc("POST /api/knowledge-base/sync", kbHandler.Sync)
	mux.HandleFunc("GET /api/knowledge-base/orphans", kbHandler.Orphans)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestID → Recovery → Session gate → Routes
	h = middleware.RequireSession(store)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestID(logger)(h)

	// CORS - Must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
