package repository

import (
	"context"
	"time"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// ConversationRepository persists conversations and their messages.
type ConversationRepository interface {
	// Create stores a new conversation.
	Create(ctx context.Context, conv *domain.Conversation) error

	// Get retrieves a conversation by ID.
	Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error)

	// List returns conversations, most recently updated first.
	List(ctx context.Context, limit int) ([]*domain.Conversation, error)

	// UpdateTitle changes the title and bumps updated_at.
	UpdateTitle(ctx context.Context, id domain.ConversationID, title string, at time.Time) error

	// AppendMessage stores a message and bumps the conversation's updated_at.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns a conversation's messages, oldest first.
	ListMessages(ctx context.Context, id domain.ConversationID) ([]*domain.Message, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store.
	Close() error
}

// DefaultListLimit bounds List when limit is not positive.
const DefaultListLimit = 50
