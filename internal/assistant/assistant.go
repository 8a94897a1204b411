package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/rs/zerolog"
)

// FallbackText is used when the model reply carries no text.
const FallbackText = "I'm here to help!"

// Input is a single user turn to answer.
type Input struct {
	UserID  string
	Channel ai.Channel
	Text    string
	History []ai.Message
	Stage   ai.Stage
}

// Assistant turns a user message into a sales-flow reply using an LLM.
type Assistant struct {
	querier Querier
	prompts config.Prompts
	window  int
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAssistant creates an assistant. window caps how many history entries
// are sent to the model; zero or less sends all of them.
func NewAssistant(querier Querier, prompts config.Prompts, window int, logger zerolog.Logger) *Assistant {
	return &Assistant{
		querier: querier,
		prompts: prompts,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// Respond asks the model for the next reply of the conversation.
func (a *Assistant) Respond(ctx context.Context, in Input) (ai.Reply, error) {
	stage := in.Stage
	if !stage.Valid() {
		stage = ai.DefaultStage
	}

	messages := a.buildPrompt(in, stage)

	a.logger.Debug().
		Str("user_id", in.UserID).
		Str("channel", string(in.Channel)).
		Int("prompt_messages", len(messages)).
		Msg("querying model")

	result, err := a.querier.Query(ctx, messages)
	if err != nil {
		return ai.Reply{}, fmt.Errorf("assistant query: %w", err)
	}

	a.logger.Debug().
		Int("input_tokens", result.InputTokens).
		Int("output_tokens", result.OutputTokens).
		Msg("model replied")

	reply := parseReply(result.Content, stage)
	reply.Timestamp = a.now().UnixMilli()
	reply.From = "ia"

	return reply, nil
}

func (a *Assistant) buildPrompt(in Input, stage ai.Stage) []PromptMessage {
	tone := a.prompts.Tone(string(in.Channel))
	system := fmt.Sprintf(
		"%s\n\nCurrent channel: %s. %s\nCurrent conversation stage: %s\nUser ID: %s",
		a.prompts.System, strings.ToUpper(string(in.Channel)), tone, stage, in.UserID,
	)

	history := in.History
	if a.window > 0 && len(history) > a.window {
		history = history[len(history)-a.window:]
	}

	messages := make([]PromptMessage, 0, len(history)+2)
	messages = append(messages, PromptMessage{Role: RoleSystem, Content: system})
	for _, entry := range history {
		messages = append(messages, historyTurn(entry))
	}
	messages = append(messages, PromptMessage{Role: RoleUser, Content: in.Text})

	return messages
}

// historyTurn reads either the role/content shape clients send or the
// from/text shape the history endpoint returns.
func historyTurn(entry ai.Message) PromptMessage {
	role := RoleUser
	switch stringField(entry, "role", "from") {
	case "assistant", "ia":
		role = RoleAssistant
	}
	return PromptMessage{Role: role, Content: stringField(entry, "content", "text")}
}

func stringField(entry ai.Message, keys ...string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok {
			return v
		}
	}
	return ""
}

type modelReply struct {
	Text       *string  `json:"text"`
	Stage      ai.Stage `json:"stage"`
	PaymentURL *string  `json:"payment_url"`
	Actions    []string `json:"actions"`
}

// parseReply reads the JSON object the system prompt asks for. Output that
// is not JSON becomes the reply text as-is.
func parseReply(raw string, stage ai.Stage) ai.Reply {
	raw = strings.TrimSpace(raw)

	var parsed modelReply
	if err := json.Unmarshal([]byte(stripFence(raw)), &parsed); err != nil {
		return ai.Reply{
			Text:    raw,
			Stage:   stage,
			Actions: []string{},
		}
	}

	reply := ai.Reply{
		Text:       FallbackText,
		Stage:      stage,
		PaymentURL: parsed.PaymentURL,
		Actions:    parsed.Actions,
	}
	if parsed.Text != nil && *parsed.Text != "" {
		reply.Text = *parsed.Text
	}
	if parsed.Stage.Valid() {
		reply.Stage = parsed.Stage
	}
	if reply.Actions == nil {
		reply.Actions = []string{}
	}

	return reply
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
