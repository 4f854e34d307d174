package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/internal/conversation"
	"github.com/deepgram/voxchat/internal/session"
	"github.com/deepgram/voxchat/internal/transport"
)

type nopSender struct{}

func (nopSender) Prepare(context.Context, transport.Turn) (*transport.Call, error) {
	return nil, errors.New("not connected")
}

func (nopSender) Cancel() {}

// lockedBuffer is read by the test while the chat loop writes to it
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func chatServer(t *testing.T, languages chan<- string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Language string `json:"language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if languages != nil {
			languages <- req.Language
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, chunk := range []string{"Hi", " there", "!"} {
			_, _ = io.WriteString(w, chunk)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunChat(t *testing.T) {
	server := chatServer(t, nil)
	out := &lockedBuffer{}

	cfg := config.ClientConfig{Endpoint: server.URL, Language: "en", RequestTimeout: 5 * time.Second}
	err := runChat(context.Background(), cfg, strings.NewReader("Hello\n"), out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Replying in English.")
	assert.Contains(t, out.String(), "assistant: Hi there!\n")
}

func TestRunChatCommands(t *testing.T) {
	languages := make(chan string, 1)
	server := chatServer(t, languages)
	out := &lockedBuffer{}

	cfg := config.ClientConfig{Endpoint: server.URL, Language: "en", RequestTimeout: 5 * time.Second}
	input := "/lang French\nBonjour\n"
	require.NoError(t, runChat(context.Background(), cfg, strings.NewReader(input), out))

	assert.Equal(t, "fr", <-languages)
	assert.Contains(t, out.String(), "Replying in French\n")
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		handled      bool
		wantLanguage string
		wantOutput   string
	}{
		{name: "plain text", text: "hello", handled: false, wantLanguage: "en"},
		{name: "language tag", text: "/lang hi", handled: true, wantLanguage: "hi", wantOutput: "Replying in Hindi\n"},
		{name: "language name", text: "/lang malayalam", handled: true, wantLanguage: "ml", wantOutput: "Replying in Malayalam\n"},
		{name: "free-form language", text: "/lang Spanish", handled: true, wantLanguage: "Spanish", wantOutput: "Replying in Spanish\n"},
		{name: "show language", text: "/lang", handled: true, wantLanguage: "en", wantOutput: "Replying in English\n"},
		{name: "unknown command", text: "/help", handled: true, wantLanguage: "en", wantOutput: "Unknown command /help\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := session.New(nopSender{}, "en")
			var out bytes.Buffer

			assert.Equal(t, tt.handled, runCommand(sess, tt.text, &out))
			assert.Equal(t, tt.wantLanguage, sess.Language())
			assert.Equal(t, tt.wantOutput, out.String())
		})
	}
}

func TestRunCommandClear(t *testing.T) {
	sender := &nopSender{}
	sess := session.New(sender, "en")
	require.NoError(t, sess.Store().Append(conversation.NewUserMessage("hello")))

	assert.True(t, runCommand(sess, "/clear", io.Discard))
	assert.Empty(t, sess.Messages())
}

func TestRenderer(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	user := conversation.NewUserMessage("Hello")
	pending := conversation.NewPendingAssistantMessage()
	r.render([]conversation.Message{user, pending})

	pending.Content = "Hi"
	r.render([]conversation.Message{user, pending})
	pending.Content = "Hi there"
	r.render([]conversation.Message{user, pending})

	final := conversation.NewAssistantMessage("Hi there!")
	r.render([]conversation.Message{user, final})

	errReply := conversation.NewErrorMessage()
	r.render([]conversation.Message{user, final, conversation.NewUserMessage("Again"), errReply})

	r.render(nil)

	assert.Equal(t, "assistant: Hi there!\nassistant: "+conversation.ErrorReply+"\n(conversation cleared)\n", out.String())
}

func TestRendererSupersededReply(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	first := conversation.NewUserMessage("first")
	stale := conversation.NewPendingAssistantMessage()
	stale.Content = "Old"
	r.render([]conversation.Message{first, stale})

	second := conversation.NewUserMessage("second")
	pending := conversation.NewPendingAssistantMessage()
	pending.Content = "New"
	r.render([]conversation.Message{first, stale, second, pending})

	final := conversation.NewAssistantMessage("New reply")
	r.render([]conversation.Message{first, stale, second, final})

	assert.Equal(t, "assistant: Old\nassistant: New reply\n", out.String())
}
