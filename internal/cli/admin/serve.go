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

	"github.com/cortexnotes/cortex/internal/api/handlers"
	"github.com/cortexnotes/cortex/internal/chunker"
	"github.com/cortexnotes/cortex/internal/config"
	"github.com/cortexnotes/cortex/internal/database"
	"github.com/cortexnotes/cortex/internal/domain"
	"github.com/cortexnotes/cortex/internal/embedding"
	"github.com/cortexnotes/cortex/internal/jobs"
	"github.com/cortexnotes/cortex/internal/ollama"
	"github.com/cortexnotes/cortex/internal/openai"
	"github.com/cortexnotes/cortex/internal/repository"
	"github.com/cortexnotes/cortex/internal/server"
	"github.com/cortexnotes/cortex/internal/service"
	"github.com/cortexnotes/cortex/internal/storage"
	"github.com/cortexnotes/cortex/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the cortex API server on the specified port",
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

	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
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

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	notebookRepo := repository.NewNotebookRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	authSvc := service.NewAuthService(userRepo, apiKeyRepo, &service.DefaultUUIDGenerator{})

	if cfg.InitUserEmail != "" {
		if err := bootstrapInitialUser(ctx, cfg, userRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	var objectStorage service.ObjectStorage
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
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		objectStorage = s3Client
	}

	var openAIClient *openai.Client
	if cfg.HasOpenAI() {
		openAIClient = openai.NewClientWithConfig(openai.Config{
			APIKey:    cfg.OpenAIAPIKey,
			ChatModel: cfg.OpenAIChatModel,
		})
	}

	// Embedding tiers in preference order: local Ollama, then OpenAI, then
	// the deterministic hash fallback. The hash tier keeps ingestion
	// available when every provider is down.
	var tiers []embedding.Tier
	if cfg.HasOllama() {
		tiers = append(tiers, embedding.NewProviderTier("ollama", ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel)))
	}
	if openAIClient != nil {
		tiers = append(tiers, embedding.NewProviderTier("openai", openAIClient))
	}
	tiers = append(tiers, embedding.HashTier{})
	embedder := embedding.New(tiers...)

	var generator service.Generator
	if openAIClient != nil {
		generator = openAIClient
	} else {
		generator = &noopGenerator{}
		log.Println("no chat provider configured, answers will be degraded")
	}

	var captioner service.Captioner
	if openAIClient != nil {
		captioner = openAIClient
	}

	retriever := service.NewRetrieverWithConfig(chunkRepo, embedder, service.RetrieverConfig{
		Native:    cfg.NativeSearch,
		Threshold: cfg.SimilarityThreshold,
	})
	answerer := service.NewAnswererWithConfig(retriever, generator, service.AnswererConfig{
		Ungrounded: cfg.UngroundedAnswers,
	})
	decomposer := service.NewDecomposer(generator)
	orchestrator := service.NewOrchestrator(answerer, decomposer, generator)

	ingestionSvc := service.NewIngestionService(
		txRunner, documentRepo, chunkRepo, embedder, captioner, objectStorage,
		chunker.New(cfg.MaxTokensPerChunk),
	)
	notebookSvc := service.NewNotebookService(notebookRepo, documentRepo, chunkRepo, objectStorage)

	var reembedWorker *jobs.Worker
	if cfg.ReembedIntervalSeconds > 0 {
		processor := jobs.NewReembedWorker(chunkRepo, embedder)
		reembedWorker = jobs.NewWorker(processor, time.Duration(cfg.ReembedIntervalSeconds)*time.Second)
		go reembedWorker.Start(ctx)
		log.Println("re-embedding worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   authSvc,
		QueryHandler:    handlers.NewQueryHandler(orchestrator),
		IngestHandler:   handlers.NewIngestHandler(ingestionSvc),
		NotebookHandler: handlers.NewNotebookHandler(notebookSvc),
		AuthHandler:     handlers.NewAuthHandler(authSvc),
	})

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

	if reembedWorker != nil {
		reembedWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// noopGenerator stands in when no chat provider is configured. Answering
// still works: the failure is translated into a degraded answer.
type noopGenerator struct{}

func (*noopGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("generator not configured: CORTEX_OPENAI_API_KEY required")
}

func bootstrapInitialUser(ctx context.Context, cfg *config.Config, userRepo *repository.UserRepository, authSvc *service.AuthService) error {
	user, err := userRepo.GetByEmail(ctx, cfg.InitUserEmail)
	if err != nil && err != domain.ErrUserNotFound {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user, err = authSvc.CreateUser(ctx, cfg.InitUserEmail)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("bootstrap: created user '%s' (id: %s)", user.Email, user.ID)

		token, err := authSvc.CreateAPIKey(ctx, user.ID, "bootstrap")
		if err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: API key for %s: %s", user.Email, token)
		log.Println("bootstrap: save this token now, it will not be shown again")
	} else {
		log.Printf("bootstrap: user '%s' already exists (id: %s)", user.Email, user.ID)
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql handle
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
