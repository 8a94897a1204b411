package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/j0lvera/pulsai/internal/ai"
)

// ErrNotFound is returned when no conversation exists for a user and channel.
var ErrNotFound = errors.New("conversation not found")

// Role is the author of a stored message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation is the sales-flow thread of one user on one channel.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	Channel   ai.Channel
	Stage     ai.Stage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is a single stored turn of a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           Role
	Content        string
	Channel        ai.Channel
	Timestamp      time.Time
}

// Entry renders m in the shape the history endpoint returns.
func (m Message) Entry() ai.Message {
	from := "user"
	if m.Role != RoleUser {
		from = "ia"
	}
	return ai.Message{
		"from":      from,
		"text":      m.Content,
		"timestamp": m.Timestamp.UnixMilli(),
	}
}

// Store persists conversations and their messages.
type Store interface {
	// GetOrCreate returns the most recently updated conversation of the user
	// on the channel that is not completed, creating one at greeting if none.
	GetOrCreate(ctx context.Context, userID string, channel ai.Channel) (Conversation, error)
	// Latest returns the most recently updated conversation in any stage.
	Latest(ctx context.Context, userID string, channel ai.Channel) (Conversation, error)
	// SaveMessage appends a message and bumps the conversation's updated time.
	SaveMessage(ctx context.Context, conversationID uuid.UUID, role Role, content string, channel ai.Channel) (Message, error)
	UpdateStage(ctx context.Context, conversationID uuid.UUID, stage ai.Stage) error
	// Messages returns the last limit messages in chronological order.
	// A limit of zero or less returns all of them.
	Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
}
