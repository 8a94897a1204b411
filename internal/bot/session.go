package bot

import (
	"sync"

	"github.com/j0lvera/pulsai/internal/ai"
)

// Session is the local view of one chat: the last stage the backend
// reported and the turns sent back to it as history.
type Session struct {
	Stage ai.Stage
	Turns []ai.Message
	mu    sync.Mutex
}

// Store holds sessions keyed by Telegram chat ID.
type Store struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
	}
}

func (s *Store) session(chatID int64) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have won the race
	if sess, ok = s.sessions[chatID]; ok {
		return sess
	}
	sess = &Session{Stage: ai.DefaultStage, Turns: []ai.Message{}}
	s.sessions[chatID] = sess
	return sess
}

// AddTurn appends a turn in the role/content shape the assistant reads.
func (s *Store) AddTurn(chatID int64, role, content string) {
	sess := s.session(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Turns = append(sess.Turns, ai.Turn(role, content))
}

// History returns a copy of the last limit turns; zero or less returns all.
func (s *Store) History(chatID int64, limit int) []ai.Message {
	sess := s.session(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	turns := sess.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]ai.Message, len(turns))
	copy(out, turns)
	return out
}

// Stage returns the last stage seen for the chat.
func (s *Store) Stage(chatID int64) ai.Stage {
	sess := s.session(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.Stage
}

// SetStage records the stage the backend returned. Unknown stages are ignored.
func (s *Store) SetStage(chatID int64, stage ai.Stage) {
	if !stage.Valid() {
		return
	}
	sess := s.session(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Stage = stage
}

// Seed replaces the turns of a chat, typically with history fetched from
// the backend.
func (s *Store) Seed(chatID int64, turns []ai.Message) {
	sess := s.session(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Turns = append([]ai.Message{}, turns...)
}

// Clear forgets everything about a chat.
func (s *Store) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Length returns the number of turns held for a chat.
func (s *Store) Length(chatID int64) int {
	s.mu.RLock()
	sess, ok := s.sessions[chatID]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.Turns)
}
