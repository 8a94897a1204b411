package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/j0lvera/pulsai/internal/ai"
)

var _ Store = (*MemoryStore)(nil)

// thread is a conversation with its messages
type thread struct {
	conversation Conversation
	messages     []Message
	touched      uint64 // Monotonic update order, breaks ties between equal timestamps
}

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	threads map[uuid.UUID]*thread
	byOwner map[ownerKey][]uuid.UUID
	seq     uint64
	now     func() time.Time
	mu      sync.RWMutex
}

type ownerKey struct {
	userID  string
	channel ai.Channel
}

// NewMemoryStore creates a new in-memory conversation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[uuid.UUID]*thread),
		byOwner: make(map[ownerKey][]uuid.UUID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) touch(t *thread, at time.Time) {
	s.seq++
	t.touched = s.seq
	t.conversation.UpdatedAt = at
}

// newest returns the most recently touched thread of the owner that passes keep.
// Callers must hold the lock.
func (s *MemoryStore) newest(key ownerKey, keep func(Conversation) bool) *thread {
	var found *thread
	for _, id := range s.byOwner[key] {
		t := s.threads[id]
		if !keep(t.conversation) {
			continue
		}
		if found == nil || t.touched > found.touched {
			found = t
		}
	}
	return found
}

// GetOrCreate implements Store.
func (s *MemoryStore) GetOrCreate(ctx context.Context, userID string, channel ai.Channel) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ownerKey{userID: userID, channel: channel}
	active := s.newest(key, func(c Conversation) bool { return c.Stage != ai.StageCompleted })
	if active != nil {
		return active.conversation, nil
	}

	now := s.now()
	t := &thread{
		conversation: Conversation{
			ID:        uuid.New(),
			UserID:    userID,
			Channel:   channel,
			Stage:     ai.StageGreeting,
			CreatedAt: now,
		},
		messages: []Message{},
	}
	s.touch(t, now)

	s.threads[t.conversation.ID] = t
	s.byOwner[key] = append(s.byOwner[key], t.conversation.ID)

	return t.conversation, nil
}

// Latest implements Store.
func (s *MemoryStore) Latest(ctx context.Context, userID string, channel ai.Channel) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.newest(ownerKey{userID: userID, channel: channel}, func(Conversation) bool { return true })
	if t == nil {
		return Conversation{}, ErrNotFound
	}
	return t.conversation, nil
}

// SaveMessage implements Store.
func (s *MemoryStore) SaveMessage(
	ctx context.Context, conversationID uuid.UUID, role Role, content string, channel ai.Channel,
) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.threads[conversationID]
	if !exists {
		return Message{}, ErrNotFound
	}

	now := s.now()
	msg := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Channel:        channel,
		Timestamp:      now,
	}
	t.messages = append(t.messages, msg)
	s.touch(t, now)

	return msg, nil
}

// UpdateStage implements Store.
func (s *MemoryStore) UpdateStage(ctx context.Context, conversationID uuid.UUID, stage ai.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, exists := s.threads[conversationID]
	if !exists {
		return ErrNotFound
	}

	t.conversation.Stage = stage
	s.touch(t, s.now())
	return nil
}

// Messages implements Store.
func (s *MemoryStore) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.threads[conversationID]
	if !exists {
		return nil, ErrNotFound
	}

	messages := t.messages
	if limit > 0 && len(messages) > limit {
		// Return only the most recent 'limit' messages
		messages = messages[len(messages)-limit:]
	}

	out := make([]Message, len(messages))
	copy(out, messages)
	return out, nil
}
