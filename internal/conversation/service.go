package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/assistant"
	"github.com/rs/zerolog"
)

// Responder produces the assistant's reply for a user turn.
type Responder interface {
	Respond(ctx context.Context, in assistant.Input) (ai.Reply, error)
}

// Service runs a chat turn against the store and the assistant.
type Service struct {
	store     Store
	responder Responder
	logger    zerolog.Logger
}

// NewService creates a conversation service
func NewService(store Store, responder Responder, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		responder: responder,
		logger:    logger,
	}
}

// Reply stores the user's message, asks the assistant for an answer, then
// stores the answer and the stage it moved the conversation to.
func (s *Service) Reply(ctx context.Context, req ai.ChatRequest) (ai.Reply, error) {
	log := s.logger.With().Str("user_id", req.UserID).Str("channel", string(req.Channel)).Logger()

	// 1. Find the active conversation
	conv, err := s.store.GetOrCreate(ctx, req.UserID, req.Channel)
	if err != nil {
		return ai.Reply{}, fmt.Errorf("get conversation: %w", err)
	}

	// 2. Store the user message
	if _, err := s.store.SaveMessage(ctx, conv.ID, RoleUser, req.Text, req.Channel); err != nil {
		return ai.Reply{}, fmt.Errorf("save user message: %w", err)
	}

	// 3. Ask the assistant
	log.Info().Str("conversation_id", conv.ID.String()).Msg("ai request sending")
	reply, err := s.responder.Respond(ctx, assistant.Input{
		UserID:  req.UserID,
		Channel: req.Channel,
		Text:    req.Text,
		History: req.History,
		Stage:   req.Stage,
	})
	if err != nil {
		log.Error().Err(err).Msg("unable to generate ai response")
		return ai.Reply{}, err
	}
	log.Info().Str("conversation_id", conv.ID.String()).Str("stage", string(reply.Stage)).Msg("ai response received")

	// 4. Store the reply and move the stage
	if _, err := s.store.SaveMessage(ctx, conv.ID, RoleAssistant, reply.Text, req.Channel); err != nil {
		return ai.Reply{}, fmt.Errorf("save assistant message: %w", err)
	}
	if err := s.store.UpdateStage(ctx, conv.ID, reply.Stage); err != nil {
		return ai.Reply{}, fmt.Errorf("update stage: %w", err)
	}

	return reply, nil
}

// History returns the last limit messages of the user's newest conversation
// on the channel, in the from/text/timestamp shape. No conversation yields
// an empty slice.
func (s *Service) History(ctx context.Context, userID string, channel ai.Channel, limit int) ([]ai.Message, error) {
	conv, err := s.store.Latest(ctx, userID, channel)
	if errors.Is(err, ErrNotFound) {
		return []ai.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	messages, err := s.store.Messages(ctx, conv.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}

	entries := make([]ai.Message, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, m.Entry())
	}
	return entries, nil
}

// Stage returns the stage of the user's active conversation, starting one
// if there is none.
func (s *Service) Stage(ctx context.Context, userID string, channel ai.Channel) (ai.Stage, error) {
	conv, err := s.store.GetOrCreate(ctx, userID, channel)
	if err != nil {
		return "", fmt.Errorf("get conversation: %w", err)
	}
	return conv.Stage, nil
}
