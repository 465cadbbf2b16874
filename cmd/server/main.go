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

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"intelligence/internal/auth"
	"intelligence/internal/config"
	"intelligence/internal/google"
	"intelligence/internal/handler"
	"intelligence/internal/middleware"
	"intelligence/internal/prompts"
	"intelligence/internal/repository/postgres"
	chatService "intelligence/internal/service/chat"
	"intelligence/internal/service/editor"
	"intelligence/internal/service/llm"
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

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Google ID tokens
	jwksURL := cfg.GoogleJWKSURL
	if jwksURL == "" {
		jwksURL = auth.GoogleJWKSURL
	}
	jwtVerifier, err := auth.NewJWTVerifier(jwksURL, cfg.GoogleClientID, logger)
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

	// Create table names and ensure schema
	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	conversationRepo := postgres.NewConversationRepository(repoConfig)

	// Load prompt registry
	promptRegistry, err := prompts.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load prompt registry: %v", err)
	}

	// Setup the response provider
	providerFactory := llm.NewProviderFactory(cfg, promptRegistry)
	provider, err := providerFactory.GetProvider(cfg.DefaultProvider)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}
	logger.Info("response provider ready", "provider", provider.Name())

	// Composer sessions are shared between the conversation service and the
	// composer handler
	sessions := editor.NewManager()

	// Create services
	conversations := chatService.NewConversationService(
		conversationRepo,
		provider,
		promptRegistry,
		sessions,
		logger,
	)

	// Google integrations
	contactsClient := google.NewContactsClient(logger)
	emailSender := google.NewEmailSender(logger)

	// Create handlers
	conversationHandler := handler.NewConversationHandler(conversations, logger)
	composerHandler := handler.NewComposerHandler(sessions, conversations, logger)
	voiceHandler := handler.NewVoiceHandler(sessions, logger)
	googleHandler := handler.NewGoogleHandler(contactsClient, emailSender, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Conversation routes
	mux.HandleFunc("POST /api/conversations", conversationHandler.Create)
	mux.HandleFunc("GET /api/conversations", conversationHandler.List)
	mux.HandleFunc("GET /api/conversations/grouped", conversationHandler.Grouped) // Must come before {id} route
	mux.HandleFunc("GET /api/conversations/{id}", conversationHandler.Get)
	mux.HandleFunc("PATCH /api/conversations/{id}", conversationHandler.Rename)
	mux.HandleFunc("DELETE /api/conversations/{id}", conversationHandler.Delete)
	mux.HandleFunc("POST /api/conversations/{id}/select", conversationHandler.Select)
	mux.HandleFunc("POST /api/conversations/{id}/messages", conversationHandler.Send)
	mux.HandleFunc("POST /api/conversations/{id}/stop", conversationHandler.Stop)

	// Composer routes
	mux.HandleFunc("GET /api/conversations/{id}/composer", composerHandler.State)
	mux.HandleFunc("POST /api/conversations/{id}/composer/commands", composerHandler.Command)
	mux.HandleFunc("POST /api/conversations/{id}/composer/ingest", composerHandler.Ingest)
	mux.HandleFunc("GET /api/conversations/{id}/voice", voiceHandler.Stream)

	// Google integration routes
	mux.HandleFunc("GET /api/contacts", googleHandler.Contacts)
	mux.HandleFunc("POST /api/send-email", googleHandler.SendEmail)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.AuthMiddleware(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Google-Access-Token"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived voice websockets
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
