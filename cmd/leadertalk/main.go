package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leadertalk/leadertalk/internal/api"
	"github.com/leadertalk/leadertalk/internal/api/admin"
	"github.com/leadertalk/leadertalk/internal/api/chat"
	"github.com/leadertalk/leadertalk/internal/api/middleware"
	"github.com/leadertalk/leadertalk/internal/config"
	"github.com/leadertalk/leadertalk/internal/index"
	"github.com/leadertalk/leadertalk/internal/llm"
	"github.com/leadertalk/leadertalk/internal/repository"
	"github.com/leadertalk/leadertalk/internal/service"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (leader records and chat turns)
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	leaderRepo := repository.NewLeaderRepository(db)
	turnRepo := repository.NewTurnRepository(db)

	// Initialize model service client (generation + embeddings)
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}

	// Initialize vector index components
	chunker := index.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	indexStore := index.NewStore(llmClient, cfg.Storage.Indexes)
	retriever := service.NewIndexRetriever(indexStore)

	// Initialize services
	ingestService := service.NewIngestService(leaderRepo, chunker, indexStore, logger)
	chatService := service.NewChatService(leaderRepo, turnRepo, retriever, llmClient, cfg.Retrieval.TopK, logger)
	suggestionService := service.NewSuggestionService(leaderRepo, retriever, llmClient, cfg.Retrieval.TopK, logger)

	// Setup router
	chatHandler := chat.NewHandler(leaderRepo, chatService, suggestionService)
	adminHandler := admin.NewHandler(leaderRepo, ingestService, cfg.Storage.Documents, logger)
	router := api.SetupRouter(chatHandler, adminHandler, api.RouterConfig{
		AdminAPIKey:  cfg.Admin.APIKey,
		Identity:     middleware.StaticResolver(cfg.Auth.Tokens),
		AllowOrigins: []string{"*"},
	})

	// Create HTTP server. No write timeout: streaming responses outlive
	// fixed limits and the model call timeout bounds them instead.
	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting LeaderTalk server",
			zap.String("address", cfg.Address()),
			zap.String("base_url", cfg.Server.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
