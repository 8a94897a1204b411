package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/j0lvera/pulsai/internal/ai"
)

// ChannelInfo describes a supported channel.
type ChannelInfo struct {
	ID     ai.Channel `json:"id"`
	Label  string     `json:"label"`
	Icon   string     `json:"icon"`
	Active bool       `json:"active"`
}

// SupportedChannels is the channel list served by /api/channels.
var SupportedChannels = []ChannelInfo{
	{ID: ai.ChannelWeb, Label: "Web Chat", Icon: "globe", Active: true},
	{ID: ai.ChannelWhatsApp, Label: "WhatsApp", Icon: "phone", Active: true},
	{ID: ai.ChannelEmail, Label: "Email", Icon: "mail", Active: true},
	{ID: ai.ChannelMessenger, Label: "Messenger", Icon: "message", Active: true},
	{ID: ai.ChannelInstagram, Label: "Instagram", Icon: "camera", Active: true},
	{ID: ai.ChannelTelegram, Label: "Telegram", Icon: "send", Active: true},
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "PulsAI backend running",
		"version": Version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validateChatRequest applies defaults and returns a detail for the first
// invalid field.
func validateChatRequest(req *ai.ChatRequest) string {
	switch {
	case req.UserID == "":
		return "userId is required"
	case req.Text == "":
		return "text is required"
	case req.Channel == "":
		return "channel is required"
	case !req.Channel.Valid():
		return fmt.Sprintf("unknown channel %q", req.Channel)
	}

	if req.Stage == "" {
		req.Stage = ai.DefaultStage
	}
	if !req.Stage.Valid() {
		return fmt.Sprintf("unknown stage %q", req.Stage)
	}
	if req.History == nil {
		req.History = []ai.Message{}
	}
	return ""
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req ai.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondDetail(w, http.StatusUnprocessableEntity, "invalid request body: "+err.Error())
		return
	}

	if detail := validateChatRequest(&req); detail != "" {
		s.respondDetail(w, http.StatusUnprocessableEntity, detail)
		return
	}

	reply, err := s.service.Reply(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Str("channel", string(req.Channel)).Msg("unable to reply")
		s.respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.replies.WithLabelValues(string(req.Channel), string(reply.Stage)).Inc()
	s.respondJSON(w, http.StatusOK, reply)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	channel := chi.URLParam(r, "channel")

	limit := s.opts.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondDetail(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = n
	}

	messages, err := s.service.History(r.Context(), userID, ai.Channel(channel), limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("channel", channel).Msg("unable to load history")
		s.respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"userId":   userID,
		"channel":  channel,
	})
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	channel := chi.URLParam(r, "channel")

	stage, err := s.service.Stage(r.Context(), userID, ai.Channel(channel))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("channel", channel).Msg("unable to load stage")
		s.respondDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"userId":  userID,
		"channel": channel,
		"stage":   stage,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"channels": SupportedChannels})
}

func (s *Server) handleChannelStatus(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	for _, ch := range SupportedChannels {
		if string(ch.ID) == channel {
			s.respondJSON(w, http.StatusOK, map[string]any{
				"channel":   channel,
				"status":    "active",
				"connected": ch.Active,
			})
			return
		}
	}

	s.respondDetail(w, http.StatusNotFound, fmt.Sprintf("unknown channel '%s'", channel))
}
