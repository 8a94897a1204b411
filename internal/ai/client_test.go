package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	return client
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

// closedAddr returns the address of a listener that no longer accepts connections.
func closedAddr(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "http://" + addr
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		expected string
		wantErr  bool
	}{
		{"empty uses default", "", DefaultBaseURL, false},
		{"trims trailing slash", "https://api.pulsai.example/", "https://api.pulsai.example", false},
		{"keeps path prefix", "https://example.com/pulsai", "https://example.com/pulsai", false},
		{"rejects missing scheme", "localhost", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(tc.baseURL)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, client.BaseURL())
		})
	}
}

func TestSendMessageReturnsBodyUnmodified(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"reply":"hi"}`))

	resp, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"reply":"hi"}`, resp.String())
}

func TestSendMessageRequest(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotType   string
		gotBody   map[string]any
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(http.StatusOK, `{}`)(w, r)
	})

	_, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWhatsApp, Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/ai/message", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, map[string]any{
		"userId":   "u1",
		"channel":  "whatsapp",
		"text":     "hello",
		"history":  []any{},
		"stage":    "greeting",
		"metadata": map[string]any{},
	}, gotBody)
}

func TestSendMessageKeepsProvidedFields(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		respond(http.StatusOK, `{}`)(w, r)
	})

	_, err := client.SendMessage(context.Background(), ChatRequest{
		UserID:   "u1",
		Channel:  ChannelEmail,
		Text:     "what does it cost?",
		History:  []Message{Turn("user", "hi"), Turn("assistant", "hello!")},
		Stage:    StagePresentation,
		Metadata: map[string]any{"source": "landing"},
	})
	require.NoError(t, err)

	assert.Equal(t, "presentation", gotBody["stage"])
	assert.Equal(t, map[string]any{"source": "landing"}, gotBody["metadata"])
	assert.Equal(t, []any{
		map[string]any{"role": "user", "content": "hi"},
		map[string]any{"role": "assistant", "content": "hello!"},
	}, gotBody["history"])
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"detail from body", http.StatusInternalServerError, `{"detail":"bad input"}`, "bad input"},
		{"unparsable body", http.StatusInternalServerError, `<html>oops</html>`, "Server error: 500"},
		{"empty body", http.StatusBadGateway, ``, "Server error: 502"},
		{"no detail field", http.StatusBadRequest, `{"error":"nope"}`, "Server error: 400"},
		{"empty detail", http.StatusInternalServerError, `{"detail":""}`, "Server error: 500"},
		{"null detail", http.StatusInternalServerError, `{"detail":null}`, "Server error: 500"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","text"]}]}`, `[{"loc":["body","text"]}]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, respond(tc.status, tc.body))

			resp, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "hello"})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tc.expected, err.Error())

			var serverErr *ServerError
			require.True(t, errors.As(err, &serverErr))
			assert.Equal(t, tc.status, serverErr.Status)
		})
	}
}

func TestSendMessageInvalidSuccessBody(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `not json`))

	_, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "hello"})
	require.Error(t, err)

	var serverErr *ServerError
	assert.False(t, errors.As(err, &serverErr))
}

func TestSendMessageConnectionRefused(t *testing.T) {
	client, err := NewClient(closedAddr(t))
	require.NoError(t, err)

	_, err = client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "hello"})
	require.Error(t, err)
}

func TestChatResponseReply(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK,
		`{"text":"Here is your link","stage":"payment","timestamp":1700000000000,"payment_url":"https://pay.example/1","actions":["Pay now"],"from_":"ia"}`))

	resp, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "I'll take it"})
	require.NoError(t, err)

	reply, err := resp.Reply()
	require.NoError(t, err)
	assert.Equal(t, "Here is your link", reply.Text)
	assert.Equal(t, StagePayment, reply.Stage)
	assert.Equal(t, int64(1700000000000), reply.Timestamp)
	require.NotNil(t, reply.PaymentURL)
	assert.Equal(t, "https://pay.example/1", *reply.PaymentURL)
	assert.Equal(t, []string{"Pay now"}, reply.Actions)
	assert.Equal(t, "ia", reply.From)

	encoded, err := json.Marshal(map[string]any{"reply": resp})
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"stage":"payment"`)
}

func TestFetchHistory(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		respond(http.StatusOK, `{"messages":[{"a":1}]}`)(w, r)
	})

	messages := client.FetchHistory(context.Background(), "u1", "web")
	assert.Equal(t, "/api/ai/messages/u1/web", gotPath)
	assert.Equal(t, []Message{{"a": float64(1)}}, messages)
}

func TestFetchHistoryEscapesPath(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		respond(http.StatusOK, `{"messages":[]}`)(w, r)
	})

	client.FetchHistory(context.Background(), "user/42", "web")
	assert.Equal(t, "/api/ai/messages/user%2F42/web", gotPath)
}

func TestFetchHistoryEmptyCases(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"detail":"Not Found"}`},
		{"server error", http.StatusInternalServerError, `{"detail":"db down"}`},
		{"missing messages", http.StatusOK, `{"userId":"u1"}`},
		{"null messages", http.StatusOK, `{"messages":null}`},
		{"unparsable body", http.StatusOK, `nope`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, respond(tc.status, tc.body))

			messages := client.FetchHistory(context.Background(), "u1", "web")
			require.NotNil(t, messages)
			assert.Empty(t, messages)
		})
	}
}

func TestFetchHistoryConnectionRefused(t *testing.T) {
	client, err := NewClient(closedAddr(t))
	require.NoError(t, err)

	messages := client.FetchHistory(context.Background(), "u1", "web")
	require.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestFetchHistoryCancelledContext(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, `{"messages":[{"a":1}]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, client.FetchHistory(ctx, "u1", "web"))
}

func TestFetchStage(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		respond(http.StatusOK, `{"userId":"u1","channel":"web","stage":"objection"}`)(w, r)
	})

	stage, err := client.FetchStage(context.Background(), "u1", "web")
	require.NoError(t, err)
	assert.Equal(t, "/api/ai/stage/u1/web", gotPath)
	assert.Equal(t, StageObjection, stage)
}

func TestFetchStageError(t *testing.T) {
	client := newTestClient(t, respond(http.StatusInternalServerError, `{"detail":"db down"}`))

	_, err := client.FetchStage(context.Background(), "u1", "web")
	require.EqualError(t, err, "db down")
}

func TestConcurrentCalls(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			respond(http.StatusOK, `{"reply":"hi"}`)(w, r)
			return
		}
		respond(http.StatusOK, `{"messages":[{"a":1}]}`)(w, r)
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp, err := client.SendMessage(context.Background(), ChatRequest{UserID: "u1", Channel: ChannelWeb, Text: "hello"})
			assert.NoError(t, err)
			assert.JSONEq(t, `{"reply":"hi"}`, resp.String())
		}()
		go func() {
			defer wg.Done()
			assert.Len(t, client.FetchHistory(context.Background(), "u1", "web"), 1)
		}()
	}
	wg.Wait()
}
