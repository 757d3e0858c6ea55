package admin

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

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/knowledgerelay/relay/internal/api/handlers"
	"github.com/knowledgerelay/relay/internal/config"
	"github.com/knowledgerelay/relay/internal/database"
	"github.com/knowledgerelay/relay/internal/llm"
	"github.com/knowledgerelay/relay/internal/repository"
	"github.com/knowledgerelay/relay/internal/server"
	"github.com/knowledgerelay/relay/internal/service"
	"github.com/knowledgerelay/relay/internal/storage"
	"github.com/knowledgerelay/relay/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the knowledge relay API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	projectRepo := repository.NewProjectRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	entryRepo := repository.NewTextEntryRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool)

	// The embedding column dimension is fixed by migration. Catch a
	// mismatched embedding model now rather than on the first upsert.
	if dims, err := vectorRepo.SchemaDimensions(ctx); err != nil {
		log.Printf("could not verify embedding column dimensions: %v", err)
	} else if dims != cfg.EmbeddingDimensions {
		return fmt.Errorf(
			"RELAY_EMBEDDING_DIMENSIONS=%d does not match the vector_entries schema (%d); pick a %d-dimensional embedding model or migrate the column",
			cfg.EmbeddingDimensions, dims, dims)
	}

	blobs, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	client, embedder := buildProviders(cfg)
	index := service.NewIndexManager(embedder, vectorRepo)

	projectSvc := service.NewProjectService(projectRepo, index)
	ingestionSvc := service.NewIngestionService(projectRepo, docRepo, entryRepo, blobs, index, client)
	sessionSvc := service.NewSessionService(projectRepo, docRepo, sessionRepo, entryRepo, index, client)
	retrievalSvc := service.NewRetrievalService(projectRepo, index, client)

	routerCfg := server.RouterConfig{
		ProjectHandler:  handlers.NewProjectHandler(projectSvc),
		TransferHandler: handlers.NewTransferHandler(ingestionSvc, sessionSvc),
		QueryHandler:    handlers.NewQueryHandler(retrievalSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// buildBlobStore prefers S3-compatible storage and falls back to a local
// directory so a dev setup needs nothing but Postgres.
func buildBlobStore(ctx context.Context, cfg *config.Config) (service.BlobStore, error) {
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return s3Client, nil
	}

	local, err := storage.NewLocalStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local document store: %w", err)
	}
	log.Printf("storing documents in %s", cfg.DataDir)
	return local, nil
}

// buildProviders resolves the language model backend, preferring OpenAI,
// then OpenRouter, then a local Ollama. Without any provider the generation
// and search endpoints degrade: ingestion still stores and a hash embedder
// keeps the vector index functional for smoke testing.
func buildProviders(cfg *config.Config) (*llm.Client, service.Embedder) {
	switch {
	case cfg.HasOpenAI():
		client := llm.NewClient(llm.Config{
			Provider:            llm.ProviderOpenAI,
			APIKey:              cfg.OpenAIAPIKey,
			Model:               cfg.OpenAIModel,
			EmbeddingModel:      openai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Timeout:             cfg.ProviderTimeout,
		})
		log.Printf("using OpenAI (%s)", cfg.OpenAIModel)
		return client, client

	case cfg.HasOpenRouter():
		client := llm.NewClient(llm.Config{
			Provider:            llm.ProviderOpenRouter,
			APIKey:              cfg.OpenRouterAPIKey,
			Model:               cfg.OpenRouterModel,
			EmbeddingModel:      openai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Timeout:             cfg.ProviderTimeout,
		})
		log.Printf("using OpenRouter (%s)", cfg.OpenRouterModel)
		return client, client

	case cfg.HasOllama():
		client := llm.NewClient(llm.Config{
			Provider:            llm.ProviderOllama,
			BaseURL:             cfg.OllamaBaseURL,
			Model:               cfg.OllamaModel,
			EmbeddingModel:      openai.EmbeddingModel(cfg.OllamaEmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			Timeout:             cfg.ProviderTimeout,
		})
		log.Printf("using Ollama at %s (%s)", cfg.OllamaBaseURL, cfg.OllamaModel)
		return client, client
	}

	log.Println("no language model provider configured; answer generation will fail and embeddings use a hash fallback")
	client := llm.NewClient(llm.Config{
		Provider: llm.ProviderOpenAI,
		Model:    cfg.OpenAIModel,
		Timeout:  cfg.ProviderTimeout,
	})
	return client, llm.NewHashEmbedder(cfg.EmbeddingDimensions)
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
