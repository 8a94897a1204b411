package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/assistant"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	reply ai.Reply
	err   error
	got   assistant.Input
}

func (f *fakeResponder) Respond(ctx context.Context, in assistant.Input) (ai.Reply, error) {
	f.got = in
	return f.reply, f.err
}

func TestServiceReply(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	responder := &fakeResponder{reply: ai.Reply{Text: "Which plan fits you?", Stage: ai.StageQualification, From: "ia"}}
	svc := NewService(store, responder, zerolog.Nop())

	reply, err := svc.Reply(ctx, ai.ChatRequest{
		UserID:  "u1",
		Channel: ai.ChannelWeb,
		Text:    "Hi, I need a CRM",
		History: []ai.Message{ai.Turn("user", "earlier")},
		Stage:   ai.StageGreeting,
	})
	require.NoError(t, err)
	assert.Equal(t, "Which plan fits you?", reply.Text)

	assert.Equal(t, "Hi, I need a CRM", responder.got.Text)
	assert.Equal(t, ai.StageGreeting, responder.got.Stage)
	assert.Len(t, responder.got.History, 1)

	stage, err := svc.Stage(ctx, "u1", ai.ChannelWeb)
	require.NoError(t, err)
	assert.Equal(t, ai.StageQualification, stage)

	history, err := svc.History(ctx, "u1", ai.ChannelWeb, 50)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0]["from"])
	assert.Equal(t, "Hi, I need a CRM", history[0]["text"])
	assert.Equal(t, "ia", history[1]["from"])
	assert.Equal(t, "Which plan fits you?", history[1]["text"])
}

func TestServiceReplyResponderError(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	boom := errors.New("model unavailable")
	svc := NewService(store, &fakeResponder{err: boom}, zerolog.Nop())

	_, err := svc.Reply(ctx, ai.ChatRequest{UserID: "u1", Channel: ai.ChannelWeb, Text: "hello"})
	require.ErrorIs(t, err, boom)

	// The user message is kept even when the model fails.
	history, err := svc.History(ctx, "u1", ai.ChannelWeb, 50)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "user", history[0]["from"])
}

func TestServiceHistoryEmpty(t *testing.T) {
	svc := NewService(newTestMemoryStore(), &fakeResponder{}, zerolog.Nop())

	history, err := svc.History(context.Background(), "nobody", ai.ChannelWeb, 50)
	require.NoError(t, err)
	require.NotNil(t, history)
	assert.Empty(t, history)
}

func TestServiceHistoryLimit(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	svc := NewService(store, &fakeResponder{reply: ai.Reply{Text: "ok", Stage: ai.StageGreeting}}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := svc.Reply(ctx, ai.ChatRequest{UserID: "u1", Channel: ai.ChannelWeb, Text: "ping"})
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, "u1", ai.ChannelWeb, 4)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestServiceCompletedConversationStillListed(t *testing.T) {
	ctx := context.Background()
	store := newTestMemoryStore()
	svc := NewService(store, &fakeResponder{reply: ai.Reply{Text: "Thanks for your order!", Stage: ai.StageCompleted}}, zerolog.Nop())

	_, err := svc.Reply(ctx, ai.ChatRequest{UserID: "u1", Channel: ai.ChannelWeb, Text: "paid"})
	require.NoError(t, err)

	history, err := svc.History(ctx, "u1", ai.ChannelWeb, 50)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// A completed conversation is not resumed.
	stage, err := svc.Stage(ctx, "u1", ai.ChannelWeb)
	require.NoError(t, err)
	assert.Equal(t, ai.StageGreeting, stage)
}
