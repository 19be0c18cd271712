package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/persona"
	"github.com/iconidentify/buzzteacher/internal/repository"
	"github.com/iconidentify/buzzteacher/internal/service"
	"github.com/iconidentify/buzzteacher/internal/stream"
	"github.com/iconidentify/buzzteacher/internal/worker"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockCompletion streams fixed fragments and answers Complete with title.
type mockCompletion struct {
	mu        sync.Mutex
	fragments []string
	title     string
	streams   int
}

func (m *mockCompletion) Stream(ctx context.Context, req domain.CompletionRequest, onFragment func(string) error) error {
	m.mu.Lock()
	m.streams++
	m.mu.Unlock()

	for _, f := range m.fragments {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCompletion) Complete(ctx context.Context, prompt string) (string, error) {
	return m.title, nil
}

// mockPinger is a test implementation of Pinger.
type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

type testEnv struct {
	router        *chi.Mux
	completion    *mockCompletion
	conversations *service.ConversationService
}

// newTestEnv wires real services over in-memory fakes, without platform
// clients, and mounts the handlers the way the API router does.
func newTestEnv() *testEnv {
	logger := testLogger()
	cfg := config.AnalysisConfig{BatchSize: 5, ProfileVideoCount: 10, DefaultPersona: "doshirouto"}
	completion := &mockCompletion{fragments: []string{"Try a ", "stronger hook."}, title: `"Hook tips"`}
	catalog := persona.Default()

	conversations := service.NewConversationService(repository.NewInMemoryConversationRepository(), completion, cfg, logger)
	chat := service.NewChatService(
		service.NewAnalysisService(service.Clients{}, worker.NewScheduler(worker.Config{BatchSize: 5}, logger), cfg, logger),
		service.NewAdviceService(completion, catalog, cfg, logger),
		service.NewDebateService(completion, stream.Pacer{ChunkSize: 10}, logger),
		conversations,
		logger,
	)

	chatHandler := NewChatHandler(chat, logger)
	convHandler := NewConversationHandler(conversations, logger)
	personaHandler := NewPersonaHandler(catalog)

	r := chi.NewRouter()
	r.Post("/api/v1/chat", chatHandler.Chat)
	r.Get("/api/v1/personas", personaHandler.List)
	r.Get("/api/v1/conversations", convHandler.List)
	r.Post("/api/v1/conversations", convHandler.Create)
	r.Get("/api/v1/conversations/{conversationID}", convHandler.Get)
	r.Get("/api/v1/conversations/{conversationID}/messages", convHandler.Messages)
	r.Post("/api/v1/conversations/{conversationID}/messages", convHandler.AppendMessage)
	r.Post("/api/v1/conversations/{conversationID}/generate-title", convHandler.GenerateTitle)

	return &testEnv{router: r, completion: completion, conversations: conversations}
}
