package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/buzzteacher/internal/config"
	"github.com/iconidentify/buzzteacher/internal/domain"
	"github.com/iconidentify/buzzteacher/internal/repository"
)

const (
	titleRunes          = 50
	titleUserRunes      = 300
	titleAssistantRunes = 500
)

// ConversationService manages stored conversations.
type ConversationService struct {
	repo           repository.ConversationRepository
	completion     CompletionService
	defaultPersona string
	now            func() time.Time
	logger         *slog.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	repo repository.ConversationRepository,
	completion CompletionService,
	cfg config.AnalysisConfig,
	logger *slog.Logger,
) *ConversationService {
	return &ConversationService{
		repo:           repo,
		completion:     completion,
		defaultPersona: cfg.DefaultPersona,
		now:            time.Now,
		logger:         logger,
	}
}

// Create starts a conversation. An empty title becomes the default one and
// no personas means the default persona.
func (s *ConversationService) Create(ctx context.Context, title string, personas []string) (*domain.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	if len(personas) == 0 && s.defaultPersona != "" {
		personas = []string{s.defaultPersona}
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:        domain.ConversationID(uuid.New().String()),
		Title:     truncateRunes(title, titleRunes),
		Personas:  personas,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	s.logger.Info("conversation created", "conversation_id", conv.ID)
	return conv, nil
}

// Get returns a conversation.
func (s *ConversationService) Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	return s.repo.Get(ctx, id)
}

// List returns recent conversations.
func (s *ConversationService) List(ctx context.Context, limit int) ([]*domain.Conversation, error) {
	return s.repo.List(ctx, limit)
}

// AppendRequest is a message to add to a conversation.
type AppendRequest struct {
	Role     domain.Role
	Content  string
	Personas []string
	Sections []domain.PersonaSection
}

// Append adds a message. The first user message of an untitled
// conversation becomes its title.
func (s *ConversationService) Append(ctx context.Context, id domain.ConversationID, req AppendRequest) (*domain.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, domain.ErrEmptyContent
	}
	if req.Role != domain.RoleUser && req.Role != domain.RoleAssistant {
		return nil, fmt.Errorf("%w: role %q", domain.ErrInvalidRequest, req.Role)
	}

	conv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: id,
		Role:           req.Role,
		Content:        req.Content,
		Personas:       req.Personas,
		Sections:       req.Sections,
		CreatedAt:      s.now(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	if req.Role == domain.RoleUser && conv.Title == domain.DefaultConversationTitle {
		title := truncateRunes(strings.TrimSpace(req.Content), titleRunes)
		if err := s.repo.UpdateTitle(ctx, id, title, msg.CreatedAt); err != nil {
			s.logger.Warn("failed to set conversation title", "conversation_id", id, "error", err)
		}
	}

	return msg, nil
}

// Messages returns a conversation's messages, oldest first.
func (s *ConversationService) Messages(ctx context.Context, id domain.ConversationID) ([]*domain.Message, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, id)
}

// GenerateTitle asks the completion service for a short title of the first
// exchange and stores it. Empty inputs are taken from the stored messages.
func (s *ConversationService) GenerateTitle(ctx context.Context, id domain.ConversationID, userMessage, aiResponse string) (string, error) {
	if userMessage == "" || aiResponse == "" {
		msgs, err := s.Messages(ctx, id)
		if err != nil {
			return "", err
		}
		for _, m := range msgs {
			if userMessage == "" && m.Role == domain.RoleUser {
				userMessage = m.Content
			}
			if aiResponse == "" && m.Role == domain.RoleAssistant {
				aiResponse = m.Content
			}
		}
	}
	if userMessage == "" || aiResponse == "" {
		return "", fmt.Errorf("%w: a user message and an assistant response are required", domain.ErrInvalidRequest)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return "", err
	}

	prompt := "Turn the conversation below into a short, natural title.\n" +
		"Include the @username if there is a URL.\n" +
		"Output only the title, without explanation or quotes.\n\n" +
		"User: " + truncateRunes(userMessage, titleUserRunes) + "\n" +
		"Start of the AI response: " + truncateRunes(aiResponse, titleAssistantRunes)

	text, err := s.completion.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}

	title := truncateRunes(cleanTitle(text), titleRunes)
	if title == "" {
		return "", fmt.Errorf("generate title: %w", domain.ErrEmptyContent)
	}
	if err := s.repo.UpdateTitle(ctx, id, title, s.now()); err != nil {
		return "", fmt.Errorf("update title: %w", err)
	}

	s.logger.Info("conversation title generated", "conversation_id", id, "title", title)
	return title, nil
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, "'")
	return strings.TrimSpace(s)
}
