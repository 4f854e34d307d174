package chat

import (
	"context"

	"github.com/deepgram/voxchat/internal/services/chat/models"
)

// Service defines the interface for chat operations
type Service interface {
	// StreamChat sends the conversation to the model and calls onDelta with
	// each piece of reply text as it arrives. An error from onDelta stops
	// the stream and is returned.
	StreamChat(ctx context.Context, req models.ChatRequest, onDelta func(string) error) error

	// CompleteChat sends the conversation to the model and returns the whole reply
	CompleteChat(ctx context.Context, req models.ChatRequest) (string, error)
}
