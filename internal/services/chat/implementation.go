package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/internal/services/chat/models"
	"github.com/deepgram/voxchat/pkg/logger"
)

var (
	ErrNoMessages = errors.New("empty messages array")
	ErrNoChoices  = errors.New("no response choices returned")
)

type Implementation struct {
	client      *openai.Client
	model       string
	temperature float32
}

func NewService(client *openai.Client, cfg config.ChatConfig) (*Implementation, error) {
	if client == nil {
		return nil, fmt.Errorf("OpenAI client is required")
	}

	return &Implementation{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (s *Implementation) StreamChat(ctx context.Context, req models.ChatRequest, onDelta func(string) error) error {
	completionReq, err := s.buildRequest(req)
	if err != nil {
		return err
	}
	completionReq.Stream = true

	stream, err := s.client.CreateChatCompletionStream(ctx, completionReq)
	if err != nil {
		logger.Error(logger.CHAT, "Failed to start chat completion stream: %v", err)
		return fmt.Errorf("failed to start chat completion stream: %w", err)
	}
	defer stream.Close()

	deltas := 0
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			logger.Debug(logger.CHAT, "Chat completion stream finished after %d deltas", deltas)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to receive chat completion delta: %w", err)
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		deltas++
		if err := onDelta(resp.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}

func (s *Implementation) CompleteChat(ctx context.Context, req models.ChatRequest) (string, error) {
	completionReq, err := s.buildRequest(req)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateChatCompletion(ctx, completionReq)
	if err != nil {
		logger.Error(logger.CHAT, "Failed to get chat completion: %v", err)
		return "", fmt.Errorf("failed to get chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	logger.Debug(logger.CHAT, "Chat completion used %d tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// buildRequest prepends the language system prompt. A leading system message
// from the caller is kept as additional instructions, never as a replacement.
func (s *Implementation) buildRequest(req models.ChatRequest) (openai.ChatCompletionRequest, error) {
	messages := req.Messages
	logger.Debug(logger.CHAT, "Processing chat request with %d messages", len(messages))

	if len(messages) == 0 {
		return openai.ChatCompletionRequest{}, ErrNoMessages
	}

	prompt := models.NewSystemPrompt(req.Language)
	if messages[0].Role == openai.ChatMessageRoleSystem {
		prompt.SetCustom(messages[0].Content)
		messages = messages[1:]
		if len(messages) == 0 {
			return openai.ChatCompletionRequest{}, fmt.Errorf("%w after system prompt", ErrNoMessages)
		}
	}

	openaiMessages := make([]openai.ChatCompletionMessage, len(messages)+1)
	openaiMessages[0] = openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: prompt.String(),
	}
	for i, msg := range messages {
		openaiMessages[i+1] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	return openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    openaiMessages,
		Temperature: s.temperature,
	}, nil
}
