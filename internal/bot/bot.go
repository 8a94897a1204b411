package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/rs/zerolog"
)

// Sender is the part of the Telegram API the handler talks to.
type Sender interface {
	SendMessage(ctx context.Context, params *tbot.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tbot.SendChatActionParams) (bool, error)
}

// ChatClient is the part of the PulsAI API client the handler uses.
type ChatClient interface {
	SendMessage(ctx context.Context, req ai.ChatRequest) (ai.ChatResponse, error)
	FetchHistory(ctx context.Context, userID, channel string) []ai.Message
	FetchStage(ctx context.Context, userID, channel string) (ai.Stage, error)
}

// Handler relays Telegram messages to the PulsAI backend.
type Handler struct {
	client       ChatClient
	sessions     *Store
	channel      ai.Channel
	historyLimit int
	log          zerolog.Logger
}

// NewHandler creates a handler that reports every chat as channel. historyLimit
// caps the local turns sent with each request.
func NewHandler(client ChatClient, channel ai.Channel, historyLimit int, log zerolog.Logger) *Handler {
	return &Handler{
		client:       client,
		sessions:     NewStore(),
		channel:      channel,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Handle processes a single update.
func (h *Handler) Handle(ctx context.Context, tg Sender, update *models.Update) {
	// Guard against nil message
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	// Guard against nil user
	if update.Message.From == nil {
		h.log.Warn().Int64("chat_id", chatID).Msg("received message without user info")
		return
	}

	userID := strconv.FormatInt(update.Message.From.ID, 10)
	text := strings.TrimSpace(update.Message.Text)

	switch {
	case text == "":
		return
	case text == "/clear":
		h.sessions.Clear(chatID)
		h.send(ctx, tg, &tbot.SendMessageParams{
			ChatID: chatID,
			Text:   "Conversation cleared. Starting fresh!",
		})
		h.log.Info().Int64("chat_id", chatID).Str("user_id", userID).Msg("session cleared by user")
		return
	case text == "/start" || strings.HasPrefix(text, "/start "):
		h.start(ctx, tg, chatID, userID)
		return
	}

	tg.SendChatAction(ctx, &tbot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})

	req := ai.ChatRequest{
		UserID:  userID,
		Channel: h.channel,
		Text:    text,
		History: h.sessions.History(chatID, h.historyLimit),
		Stage:   h.sessions.Stage(chatID),
	}

	h.log.Info().Int64("chat_id", chatID).Str("stage", string(req.Stage)).Msg("ai request sending")
	resp, err := h.client.SendMessage(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("unable to reach assistant")
		h.send(ctx, tg, &tbot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Sorry, I couldn't reach the assistant: %s", err),
		})
		return
	}

	reply, err := resp.Reply()
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("unable to decode assistant reply")
		h.send(ctx, tg, &tbot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("Sorry, I couldn't read the assistant reply: %s", err),
		})
		return
	}
	h.log.Info().Int64("chat_id", chatID).Str("stage", string(reply.Stage)).Msg("ai response received")

	h.sessions.AddTurn(chatID, "user", text)
	h.sessions.AddTurn(chatID, "assistant", reply.Text)
	h.sessions.SetStage(chatID, reply.Stage)

	h.send(ctx, tg, &tbot.SendMessageParams{
		ChatID:      chatID,
		Text:        reply.Text,
		ReplyMarkup: replyMarkup(reply),
	})
}

func (h *Handler) start(ctx context.Context, tg Sender, chatID int64, userID string) {
	history := h.client.FetchHistory(ctx, userID, string(h.channel))
	h.sessions.Seed(chatID, history)

	if stage, err := h.client.FetchStage(ctx, userID, string(h.channel)); err != nil {
		h.log.Debug().Err(err).Int64("chat_id", chatID).Msg("unable to fetch stage")
	} else {
		h.sessions.SetStage(chatID, stage)
	}

	text := "Welcome! How can I help you today?"
	if len(history) > 0 {
		text = fmt.Sprintf("Welcome back! I found %d earlier messages.", len(history))
	}
	h.send(ctx, tg, &tbot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

func (h *Handler) send(ctx context.Context, tg Sender, params *tbot.SendMessageParams) {
	if _, err := tg.SendMessage(ctx, params); err != nil {
		h.log.Error().Err(err).Any("chat_id", params.ChatID).Msg("unable to send telegram message")
	}
}

// replyMarkup offers a payment button when the reply carries a link, and
// otherwise a one-time keyboard with the suggested actions.
func replyMarkup(reply ai.Reply) models.ReplyMarkup {
	if reply.PaymentURL != nil && *reply.PaymentURL != "" {
		return &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "Pay now", URL: *reply.PaymentURL}},
			},
		}
	}

	if len(reply.Actions) == 0 {
		return nil
	}

	rows := make([][]models.KeyboardButton, 0, len(reply.Actions))
	for _, action := range reply.Actions {
		rows = append(rows, []models.KeyboardButton{{Text: action}})
	}
	return &models.ReplyKeyboardMarkup{
		Keyboard:        rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}
