package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"valvx/internal/access"
	"valvx/internal/auth"
	"valvx/internal/config"
	"valvx/internal/handler"
	"valvx/internal/middleware"
	"valvx/internal/repository/postgres"
	"valvx/internal/service"
	"valvx/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if dir := os.Getenv("LOG_DIR"); dir != "" {
		logFile, err := config.SetupLogFile(dir, 10)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	nodeRepo := postgres.NewNodeRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	annRepo := postgres.NewAnnotationRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Blob store for uploaded file bytes
	blobStore, err := storage.NewLocalStore(cfg.BlobDir, cfg.MediaURL)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	// Role policy registry
	policy, err := access.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize access registry: %v", err)
	}
	logger.Info("access registry initialized", "roles", policy.ListRoles())

	// Create services
	nodeService := service.NewNodeService(nodeRepo, txManager, logger)
	docService := service.NewDocumentService(docRepo, nodeRepo, blobStore, txManager, logger)
	pageService := service.NewPageService(nodeRepo, docRepo, blobStore, logger)
	cascadeService := service.NewCascadeService(nodeRepo, docRepo, blobStore, txManager, logger)
	annService := service.NewAnnotationService(annRepo, docRepo, logger)

	// Create handlers
	nodeHandler := handler.NewNodeHandler(nodeService, pageService, cascadeService, policy, logger)
	docHandler := handler.NewDocumentHandler(docService, policy, logger)
	annHandler := handler.NewAnnotationHandler(annService, policy, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Directory routes
	mux.HandleFunc("POST /api/directories", nodeHandler.CreateNode)
	mux.HandleFunc("GET /api/directories", nodeHandler.ListChildren)
	mux.HandleFunc("GET /api/directories/{slug}", nodeHandler.GetNode)
	mux.HandleFunc("GET /api/directories/{slug}/data", nodeHandler.GetNodeData)
	mux.HandleFunc("PATCH /api/directories/{id}", nodeHandler.UpdateNode)
	mux.HandleFunc("DELETE /api/directories/{slug}", nodeHandler.DeleteNode)

	// Sidebar navigation
	mux.HandleFunc("GET /api/sidebar", nodeHandler.ListSidebar)

	// File routes
	mux.HandleFunc("POST /api/files/upload", docHandler.Upload)
	mux.HandleFunc("GET /api/files/{id}", docHandler.GetDocument)
	mux.HandleFunc("GET /api/files/{id}/versions", docHandler.ListVersions)
	mux.HandleFunc("GET /api/files/{id}/content", docHandler.GetContent)
	mux.HandleFunc("DELETE /api/files/{id}", docHandler.DeleteDocument)

	// Annotation routes
	mux.HandleFunc("POST /api/files/{id}/annotations", annHandler.CreateAnnotation)
	mux.HandleFunc("GET /api/files/{id}/annotations", annHandler.ListAnnotations)
	mux.HandleFunc("PATCH /api/annotations/{id}", annHandler.UpdateAnnotation)
	mux.HandleFunc("DELETE /api/annotations/{id}", annHandler.DeleteAnnotation)

	// Direct blob serving for the public media URLs
	mux.Handle("GET /media/", http.StripPrefix("/media/",
		http.FileServer(http.Dir(cfg.BlobDir))))

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Project scope → Routes
	if cfg.ProjectID != nil {
		httpHandler = middleware.ProjectMiddleware(*cfg.ProjectID)(httpHandler)
	}
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
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
