package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deepgram/voxchat/internal/services/chat/models"
)

// MockChatService mocks the chat service
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) StreamChat(ctx context.Context, req models.ChatRequest, onDelta func(string) error) error {
	args := m.Called(ctx, req, onDelta)
	return args.Error(0)
}

func (m *MockChatService) CompleteChat(ctx context.Context, req models.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// emit sends deltas through the StreamChat callback
func emit(deltas ...string) func(mock.Arguments) {
	return func(args mock.Arguments) {
		onDelta := args.Get(2).(func(string) error)
		for _, delta := range deltas {
			if err := onDelta(delta); err != nil {
				return
			}
		}
	}
}

// plainWriter hides http.Flusher from the handler
type plainWriter struct {
	http.ResponseWriter
}

const helloBody = `{"messages":[{"role":"user","content":"Hello"}],"language":"hi"}`

var helloRequest = models.ChatRequest{
	Messages: []models.ChatMessage{{Role: "user", Content: "Hello"}},
	Language: "hi",
}

func TestHandleChat(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		streaming       bool
		hideFlusher     bool
		setupMocks      func(*MockChatService)
		expectedStatus  int
		expectedType    string
		expectedBody    string
		expectedErrBody string
	}{
		{
			name:      "streamed reply",
			body:      helloBody,
			streaming: true,
			setupMocks: func(m *MockChatService) {
				m.On("StreamChat", mock.Anything, helloRequest, mock.Anything).
					Run(emit("Hi", " there", "!")).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedType:   "text/plain; charset=utf-8",
			expectedBody:   "Hi there!",
		},
		{
			name:      "empty streamed reply",
			body:      helloBody,
			streaming: true,
			setupMocks: func(m *MockChatService) {
				m.On("StreamChat", mock.Anything, helloRequest, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedType:   "text/plain; charset=utf-8",
			expectedBody:   "",
		},
		{
			name:      "streaming disabled",
			body:      helloBody,
			streaming: false,
			setupMocks: func(m *MockChatService) {
				m.On("CompleteChat", mock.Anything, helloRequest).Return("Namaste!", nil)
			},
			expectedStatus: http.StatusOK,
			expectedType:   "text/plain; charset=utf-8",
			expectedBody:   "Namaste!",
		},
		{
			name:        "writer cannot flush",
			body:        helloBody,
			streaming:   true,
			hideFlusher: true,
			setupMocks: func(m *MockChatService) {
				m.On("CompleteChat", mock.Anything, helloRequest).Return("Namaste!", nil)
			},
			expectedStatus: http.StatusOK,
			expectedType:   "text/plain; charset=utf-8",
			expectedBody:   "Namaste!",
		},
		{
			name:      "provider fails before first chunk",
			body:      helloBody,
			streaming: true,
			setupMocks: func(m *MockChatService) {
				m.On("StreamChat", mock.Anything, helloRequest, mock.Anything).Return(errors.New("upstream unavailable"))
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedType:    "application/json",
			expectedErrBody: `{"error":"AI request failed"}`,
		},
		{
			name:      "buffered provider failure",
			body:      helloBody,
			streaming: false,
			setupMocks: func(m *MockChatService) {
				m.On("CompleteChat", mock.Anything, helloRequest).Return("", errors.New("upstream unavailable"))
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedType:    "application/json",
			expectedErrBody: `{"error":"AI request failed"}`,
		},
		{
			name:            "malformed JSON",
			body:            "invalid json",
			streaming:       true,
			setupMocks:      func(m *MockChatService) {},
			expectedStatus:  http.StatusBadRequest,
			expectedType:    "application/json",
			expectedErrBody: `{"error":"Invalid request format"}`,
		},
		{
			name:           "empty messages",
			body:           `{"messages":[],"language":"en"}`,
			streaming:      true,
			setupMocks:     func(m *MockChatService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
		{
			name:           "unknown role",
			body:           `{"messages":[{"role":"tool","content":"x"}]}`,
			streaming:      true,
			setupMocks:     func(m *MockChatService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
		{
			name:           "empty content",
			body:           `{"messages":[{"role":"user","content":""}]}`,
			streaming:      true,
			setupMocks:     func(m *MockChatService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
		{
			name:           "too many messages",
			body:           `{"messages":[` + strings.Repeat(`{"role":"user","content":"x"},`, 50) + `{"role":"user","content":"x"}]}`,
			streaming:      true,
			setupMocks:     func(m *MockChatService) {},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockChatService{}
			tt.setupMocks(service)

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			var w http.ResponseWriter = rec
			if tt.hideFlusher {
				w = plainWriter{rec}
			}
			HandleChat(service, tt.streaming, w, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedType, rec.Header().Get("Content-Type"))
			switch {
			case tt.expectedErrBody != "":
				assert.JSONEq(t, tt.expectedErrBody, rec.Body.String())
			case tt.expectedStatus == http.StatusOK:
				assert.Equal(t, tt.expectedBody, rec.Body.String())
			}
			service.AssertExpectations(t)
		})
	}
}

func TestHandleChatFlushesEveryChunk(t *testing.T) {
	service := &MockChatService{}
	rec := httptest.NewRecorder()

	var flushedBodies []string
	service.On("StreamChat", mock.Anything, helloRequest, mock.Anything).
		Run(func(args mock.Arguments) {
			onDelta := args.Get(2).(func(string) error)
			for _, delta := range []string{"Hi", " there"} {
				require.NoError(t, onDelta(delta))
				assert.True(t, rec.Flushed)
				flushedBodies = append(flushedBodies, rec.Body.String())
			}
		}).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(helloBody))
	HandleChat(service, true, rec, req)

	assert.Equal(t, []string{"Hi", "Hi there"}, flushedBodies)
}

func TestHandleChatAbortsInterruptedStream(t *testing.T) {
	service := &MockChatService{}
	service.On("StreamChat", mock.Anything, helloRequest, mock.Anything).
		Run(emit("Partial")).
		Return(errors.New("provider connection reset"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleChat(service, true, w, r)
	}))
	defer server.Close()

	resp, err := http.Post(server.URL, "application/json", strings.NewReader(helloBody))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.Error(t, err)
	assert.Equal(t, "Partial", string(body))
}
