package assistant

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Role is the author of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PromptMessage is one entry of the prompt sent to the model.
type PromptMessage struct {
	Role    Role
	Content string
}

// QueryResult holds the response and token usage from an LLM call.
type QueryResult struct {
	Content      string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Querier sends messages to an LLM and receives responses.
type Querier interface {
	Query(ctx context.Context, messages []PromptMessage) (QueryResult, error)
}

// QuerierOptions tunes the completion call.
type QuerierOptions struct {
	MaxTokens   int
	Temperature float64
}

// OpenAIQuerier implements Querier using the OpenAI-compatible API.
type OpenAIQuerier struct {
	client llms.Model
	opts   QuerierOptions
}

// NewOpenAIQuerier creates a new OpenAI-compatible querier.
func NewOpenAIQuerier(apiKey, baseURL, model string, opts QuerierOptions) (*OpenAIQuerier, error) {
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return &OpenAIQuerier{client: client, opts: opts}, nil
}

// Query sends messages to the LLM and returns the response with token usage.
func (q *OpenAIQuerier) Query(ctx context.Context, messages []PromptMessage) (QueryResult, error) {
	llmMessages := make([]llms.MessageContent, 0, len(messages))

	for _, msg := range messages {
		var msgType schema.ChatMessageType
		switch msg.Role {
		case RoleSystem:
			msgType = schema.ChatMessageTypeSystem
		case RoleUser:
			msgType = schema.ChatMessageTypeHuman
		case RoleAssistant:
			msgType = schema.ChatMessageTypeAI
		default:
			continue
		}
		llmMessages = append(llmMessages, llms.TextParts(msgType, msg.Content))
	}

	var callOpts []llms.CallOption
	if q.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(q.opts.MaxTokens))
	}
	callOpts = append(callOpts, llms.WithTemperature(q.opts.Temperature))

	resp, err := q.client.GenerateContent(ctx, llmMessages, callOpts...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Choices) == 0 {
		return QueryResult{}, fmt.Errorf("no choices returned from model")
	}

	result := QueryResult{
		Content: resp.Choices[0].Content,
	}

	// Extract token usage from GenerationInfo
	if genInfo := resp.Choices[0].GenerationInfo; genInfo != nil {
		result.InputTokens = tokenCount(genInfo["PromptTokens"])
		result.OutputTokens = tokenCount(genInfo["CompletionTokens"])
		result.TotalTokens = tokenCount(genInfo["TotalTokens"])
	}

	return result, nil
}

func tokenCount(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
