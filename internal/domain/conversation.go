package domain

import (
	"time"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the conversation history sent with a request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationID is a unique identifier for a conversation.
type ConversationID string

// String returns the string representation of the ConversationID.
func (id ConversationID) String() string {
	return string(id)
}

// Conversation groups the messages of one chat thread.
type Conversation struct {
	ID        ConversationID `json:"id" db:"id"`
	Title     string         `json:"title" db:"title"`
	Personas  []string       `json:"creators" db:"-"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Message is a persisted chat message.
type Message struct {
	ID             string           `json:"id" db:"id"`
	ConversationID ConversationID   `json:"conversation_id" db:"conversation_id"`
	Role           Role             `json:"role" db:"role"`
	Content        string           `json:"content" db:"content"`
	Personas       []string         `json:"creators,omitempty" db:"-"`
	Sections       []PersonaSection `json:"creatorSections,omitempty" db:"-"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// DefaultConversationTitle is used until the first user message arrives.
const DefaultConversationTitle = "New Chat"
