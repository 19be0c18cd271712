package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// InMemoryConversationRepository implements ConversationRepository using
// in-memory storage.
type InMemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[domain.ConversationID]*domain.Conversation
	messages      map[domain.ConversationID][]*domain.Message
}

// NewInMemoryConversationRepository creates a new in-memory repository.
func NewInMemoryConversationRepository() *InMemoryConversationRepository {
	return &InMemoryConversationRepository{
		conversations: make(map[domain.ConversationID]*domain.Conversation),
		messages:      make(map[domain.ConversationID][]*domain.Message),
	}
}

// Create stores a new conversation.
func (r *InMemoryConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *conv
	c.Personas = append([]string(nil), conv.Personas...)
	r.conversations[conv.ID] = &c
	return nil
}

// Get retrieves a conversation by ID.
func (r *InMemoryConversationRepository) Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	out := *c
	return &out, nil
}

// List returns conversations, most recently updated first.
func (r *InMemoryConversationRepository) List(ctx context.Context, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Conversation, 0, len(r.conversations))
	for _, c := range r.conversations {
		out := *c
		result = append(result, &out)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateTitle changes the title and bumps updated_at.
func (r *InMemoryConversationRepository) UpdateTitle(ctx context.Context, id domain.ConversationID, title string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return domain.ErrConversationNotFound
	}
	c.Title = title
	c.UpdatedAt = at
	return nil
}

// AppendMessage stores a message and bumps the conversation's updated_at.
func (r *InMemoryConversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[msg.ConversationID]
	if !ok {
		return domain.ErrConversationNotFound
	}
	m := *msg
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], &m)
	c.UpdatedAt = msg.CreatedAt
	return nil
}

// ListMessages returns a conversation's messages, oldest first.
func (r *InMemoryConversationRepository) ListMessages(ctx context.Context, id domain.ConversationID) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[id]; !ok {
		return nil, domain.ErrConversationNotFound
	}
	msgs := r.messages[id]
	result := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out := *m
		result = append(result, &out)
	}
	return result, nil
}

// Ping always succeeds.
func (r *InMemoryConversationRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (r *InMemoryConversationRepository) Close() error {
	return nil
}

// Clear removes everything (useful for testing).
func (r *InMemoryConversationRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversations = make(map[domain.ConversationID]*domain.Conversation)
	r.messages = make(map[domain.ConversationID][]*domain.Message)
}
