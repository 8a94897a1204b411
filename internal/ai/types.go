package ai

import (
	"encoding/json"
	"fmt"
)

// Channel identifies the conversation context, e.g. the messaging platform.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelEmail     Channel = "email"
	ChannelMessenger Channel = "messenger"
	ChannelInstagram Channel = "instagram"
	ChannelTelegram  Channel = "telegram"
)

// Channels lists every channel the backend accepts, in display order.
var Channels = []Channel{
	ChannelWeb,
	ChannelWhatsApp,
	ChannelEmail,
	ChannelMessenger,
	ChannelInstagram,
	ChannelTelegram,
}

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	for _, known := range Channels {
		if c == known {
			return true
		}
	}
	return false
}

// Stage marks where a conversation is in the sales flow.
type Stage string

const (
	StageGreeting      Stage = "greeting"
	StageQualification Stage = "qualification"
	StagePresentation  Stage = "presentation"
	StageObjection     Stage = "objection"
	StagePayment       Stage = "payment"
	StageCompleted     Stage = "completed"
)

// DefaultStage is sent when a request does not carry one.
const DefaultStage = StageGreeting

var stages = []Stage{
	StageGreeting,
	StageQualification,
	StagePresentation,
	StageObjection,
	StagePayment,
	StageCompleted,
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, known := range stages {
		if s == known {
			return true
		}
	}
	return false
}

// Message is a single history record. The client never looks inside it.
type Message map[string]any

// Turn builds a history record in the role/content shape the backend reads.
func Turn(role, content string) Message {
	return Message{"role": role, "content": content}
}

// ChatRequest is the envelope posted to the message endpoint.
type ChatRequest struct {
	UserID   string         `json:"userId"`
	Channel  Channel        `json:"channel"`
	Text     string         `json:"text"`
	History  []Message      `json:"history"`
	Stage    Stage          `json:"stage"`
	Metadata map[string]any `json:"metadata"`
}

// withDefaults fills the optional fields so they are always present on the wire.
func (r ChatRequest) withDefaults() ChatRequest {
	if r.History == nil {
		r.History = []Message{}
	}
	if r.Stage == "" {
		r.Stage = DefaultStage
	}
	if r.Metadata == nil {
		r.Metadata = map[string]any{}
	}
	return r
}

// ChatResponse is the backend's reply exactly as it was received.
type ChatResponse json.RawMessage

// MarshalJSON returns r unchanged.
func (r ChatResponse) MarshalJSON() ([]byte, error) {
	return json.RawMessage(r).MarshalJSON()
}

func (r ChatResponse) String() string {
	return string(r)
}

// Reply decodes r into the reply shape the PulsAI backend produces.
func (r ChatResponse) Reply() (Reply, error) {
	var reply Reply
	if err := json.Unmarshal(r, &reply); err != nil {
		return Reply{}, fmt.Errorf("decode reply: %w", err)
	}
	return reply, nil
}

// Reply is the assistant turn returned by the message endpoint.
type Reply struct {
	Text       string   `json:"text"`
	Stage      Stage    `json:"stage"`
	Timestamp  int64    `json:"timestamp"` // Unix milliseconds
	PaymentURL *string  `json:"payment_url"`
	Actions    []string `json:"actions"`
	From       string   `json:"from_"`
}

// ServerError is returned when the backend answers with a non-2xx status.
type ServerError struct {
	Status int
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Server error: %d", e.Status)
}
