package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	var got requestBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "Hi there!")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	call, err := client.Send(context.Background(), Turn{Text: "Hello", Language: "hi"})
	require.NoError(t, err)
	defer call.Close()

	assert.True(t, client.InFlight())
	assert.Equal(t, Streaming, Classify(call.Response))

	body, err := io.ReadAll(call.Body())
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", string(body))

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Hello", got.Messages[0].Content)
	assert.Equal(t, "hi", got.Language)

	call.Close()
	assert.False(t, client.InFlight())
}

func TestClientAPIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
	}{
		{
			name:        "json error body",
			status:      http.StatusInternalServerError,
			contentType: "application/json",
			body:        `{"error":"AI request failed"}`,
			wantMessage: "AI request failed",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			contentType: "text/plain",
			body:        "upstream unavailable",
		},
		{
			name:   "empty body",
			status: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			call, err := client.Send(context.Background(), Turn{Text: "Hello"})
			require.Nil(t, call)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.body, apiErr.Body)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Contains(t, apiErr.Error(), strconv.Itoa(tt.status))
			assert.False(t, IsCanceled(err))
			assert.False(t, client.InFlight(), "failed calls must release the handle")
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(endpoint)
	_, err := client.Send(context.Background(), Turn{Text: "Hello"})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, IsCanceled(err))
	assert.False(t, client.InFlight())
}

// streamingServer writes a first chunk and then holds the body open until
// the client goes away.
func streamingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "first")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
}

func TestClientSupersedesInFlightCall(t *testing.T) {
	server := streamingServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	first, err := client.Send(context.Background(), Turn{Text: "one"})
	require.NoError(t, err)
	defer first.Close()
	assert.False(t, first.Canceled())

	second, err := client.Send(context.Background(), Turn{Text: "two"})
	require.NoError(t, err)
	defer second.Close()

	assert.True(t, first.Canceled())
	assert.False(t, second.Canceled())

	_, readErr := io.ReadAll(first.Body())
	require.Error(t, readErr)
	assert.True(t, IsCanceled(first.Err(readErr)))

	// closing the superseded call must not release the newer one
	first.Close()
	assert.True(t, client.InFlight())
}

func TestClientPrepareRegistersBeforeSending(t *testing.T) {
	server := streamingServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	first, err := client.Prepare(context.Background(), Turn{Text: "one"})
	require.NoError(t, err)
	defer first.Close()
	assert.True(t, client.InFlight())

	second, err := client.Prepare(context.Background(), Turn{Text: "two"})
	require.NoError(t, err)
	defer second.Close()
	assert.True(t, first.Canceled())

	// a superseded call never reaches the route
	assert.True(t, IsCanceled(first.Do()))
	require.NoError(t, second.Do())
	assert.False(t, second.Canceled())
}

func TestClientCancel(t *testing.T) {
	server := streamingServer(t)
	defer server.Close()

	client := NewClient(server.URL)
	client.Cancel() // no call in flight

	call, err := client.Send(context.Background(), Turn{Text: "one"})
	require.NoError(t, err)
	defer call.Close()

	client.Cancel()

	assert.True(t, call.Canceled())
	assert.False(t, client.InFlight())
	select {
	case <-call.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("call context was not cancelled")
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	_, err := client.Send(context.Background(), Turn{Text: "slow"})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, IsCanceled(err))
}

func TestCallErr(t *testing.T) {
	client := NewClient("http://unused")

	t.Run("nil stays nil", func(t *testing.T) {
		call := client.begin(context.Background())
		defer call.Close()
		assert.NoError(t, call.Err(nil))
	})

	t.Run("plain failure becomes network error", func(t *testing.T) {
		call := client.begin(context.Background())
		defer call.Close()

		err := call.Err(io.ErrUnexpectedEOF)
		var netErr *NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("caller cancellation is silent", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		call := client.begin(ctx)
		defer call.Close()
		cancel()

		assert.True(t, IsCanceled(call.Err(errors.New("read aborted"))))
	})
}
