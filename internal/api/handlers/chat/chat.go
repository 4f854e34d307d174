package chat

import (
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/voxchat/internal/metrics"
	"github.com/deepgram/voxchat/internal/services/chat"
	"github.com/deepgram/voxchat/internal/services/chat/models"
	"github.com/deepgram/voxchat/pkg/httpext"
)

const maxRequestBody = 1 << 20

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleChat answers one chat turn. With streaming enabled the reply is
// written as plain text and flushed after every model delta; otherwise the
// whole reply is written at once.
//
// A failure before any reply text is written becomes a 500 JSON error. A
// failure after that aborts the response so the client sees the body end
// abnormally.
func HandleChat(chatService chat.Service, streaming bool, w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read chat request body")
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	var req models.ChatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		metrics.ChatRequests.WithLabelValues("invalid").Inc()
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	log.Info().
		Int("message_count", len(req.Messages)).
		Str("language", req.Language).
		Str("client_ip", r.RemoteAddr).
		Msg("Received chat request")

	flusher, canFlush := w.(http.Flusher)
	if !streaming || !canFlush {
		handleBuffered(chatService, req, w, r)
		return
	}

	started := false
	err = chatService.StreamChat(r.Context(), req, func(delta string) error {
		if !started {
			writeTextHeader(w)
			started = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return fmt.Errorf("failed to write reply chunk: %w", err)
		}
		flusher.Flush()
		metrics.StreamChunks.Inc()
		return nil
	})

	switch {
	case err != nil && !started:
		log.Error().Err(err).Msg("Failed to stream chat reply")
		metrics.ChatRequests.WithLabelValues("upstream_error").Inc()
		httpext.JsonError(w, "AI request failed", http.StatusInternalServerError)
	case err != nil:
		log.Error().Err(err).Str("client_ip", r.RemoteAddr).Msg("Chat reply stream interrupted")
		metrics.ChatRequests.WithLabelValues("interrupted").Inc()
		panic(http.ErrAbortHandler)
	default:
		if !started {
			writeTextHeader(w)
		}
		metrics.ChatRequests.WithLabelValues("streamed").Inc()
		log.Info().
			Str("client_ip", r.RemoteAddr).
			Int("status", http.StatusOK).
			Msg("Chat request streamed successfully")
	}
}

func handleBuffered(chatService chat.Service, req models.ChatRequest, w http.ResponseWriter, r *http.Request) {
	reply, err := chatService.CompleteChat(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to complete chat reply")
		metrics.ChatRequests.WithLabelValues("upstream_error").Inc()
		httpext.JsonError(w, "AI request failed", http.StatusInternalServerError)
		return
	}

	writeTextHeader(w)
	if _, err := io.WriteString(w, reply); err != nil {
		log.Warn().Err(err).Msg("Failed to write chat reply")
		return
	}

	metrics.ChatRequests.WithLabelValues("buffered").Inc()
	log.Info().
		Str("client_ip", r.RemoteAddr).
		Int("status", http.StatusOK).
		Msg("Chat request processed successfully")
}

func writeTextHeader(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
}
