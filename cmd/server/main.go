package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iconidentify/buzzteacher/internal/api"
	"github.com/iconidentify/buzzteacher/internal/api/handler"
	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/downloader"
	"github.com/iconidentify/buzzteacher/internal/persona"
	"github.com/iconidentify/buzzteacher/internal/repository"
	"github.com/iconidentify/buzzteacher/internal/service"
	"github.com/iconidentify/buzzteacher/internal/stream"
	"github.com/iconidentify/buzzteacher/internal/worker"
	"github.com/iconidentify/buzzteacher/pkg/gemini"
	"github.com/iconidentify/buzzteacher/pkg/grok"
	"github.com/iconidentify/buzzteacher/pkg/instagram"
	"github.com/iconidentify/buzzteacher/pkg/tiktok"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// conversationStore is the repository plus the lifecycle hooks main needs.
type conversationStore interface {
	repository.ConversationRepository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Path to an optional .env file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("buzzteacher %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// A missing .env file is fine; real environment variables win.
	envErr := godotenv.Load(*envFile)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting buzzteacher",
		"version", Version,
		"build_time", BuildTime,
		"completion_provider", cfg.Completion.Provider,
		"store", cfg.Store.Driver,
	)
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn("failed to read env file", "path", *envFile, "error", envErr)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conversation store
	store, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	// Persona catalog
	catalog := persona.Default()
	if cfg.Personas.File != "" {
		catalog, err = persona.LoadFile(cfg.Personas.File)
		if err != nil {
			return fmt.Errorf("load personas: %w", err)
		}
	}
	logger.Info("personas loaded", "count", catalog.Len())

	// External clients
	dl := downloader.NewHTTPDownloader(cfg.Download, logger)
	tiktokClient := tiktok.NewClient(cfg.RapidAPI, dl, logger)
	instagramClient := instagram.NewClient(cfg.RapidAPI, dl, logger)

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini, logger)
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}
	defer geminiClient.Close()

	var completion service.CompletionService = geminiClient
	if cfg.Completion.Provider == config.ProviderGrok {
		completion = grok.NewClient(cfg.Grok)
	}

	// Initialize services
	clients := service.Clients{
		Insight: map[domain.Platform]service.InsightClient{
			domain.PlatformTikTok:    tiktokClient,
			domain.PlatformInstagram: instagramClient,
		},
		Media: map[domain.Platform]service.MediaClient{
			domain.PlatformTikTok:    tiktokClient,
			domain.PlatformInstagram: instagramClient,
		},
		Profiles: tiktokClient,
		Analyzer: geminiClient,
	}
	scheduler := worker.NewScheduler(worker.Config{BatchSize: cfg.Analysis.BatchSize}, logger)
	pacer := stream.Pacer{
		ChunkSize:  cfg.Analysis.ChunkSize,
		ChunkDelay: cfg.Analysis.ChunkDelay,
		TurnDelay:  cfg.Analysis.TurnDelay,
	}

	conversationSvc := service.NewConversationService(store, completion, cfg.Analysis, logger)
	chatSvc := service.NewChatService(
		service.NewAnalysisService(clients, scheduler, cfg.Analysis, logger),
		service.NewAdviceService(completion, catalog, cfg.Analysis, logger),
		service.NewDebateService(completion, pacer, logger),
		conversationSvc,
		logger,
	)

	// Setup router
	router := api.NewRouter(api.Handlers{
		Chat:          handler.NewChatHandler(chatSvc, logger),
		Conversations: handler.NewConversationHandler(conversationSvc, logger),
		Personas:      handler.NewPersonaHandler(catalog),
		Health:        handler.NewHealthHandler(store),
	}, api.RouterConfig{
		APIKey:      cfg.Server.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, logger)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting new requests; open streams get the shutdown timeout.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	return nil
}

func openStore(cfg config.StoreConfig) (conversationStore, error) {
	if cfg.Driver == config.StoreMemory {
		return repository.NewInMemoryConversationRepository(), nil
	}
	repo, err := repository.NewSQLiteConversationRepository(cfg.Path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
