package openai

import (
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/pkg/logger"
)

type Service struct {
	mu     sync.RWMutex
	client *openai.Client
}

// NewService builds the provider client from the environment. It returns nil
// when no API key is configured.
func NewService() *Service {
	logger.Info(logger.SERVICE, "Initialising OpenAI service")
	key := config.GetOpenAIKey()

	if key == "" {
		logger.Warn(logger.SERVICE, "OpenAI service not configured - OPENAI_KEY missing")
		return nil
	}

	return New(key, config.GetOpenAIBaseURL())
}

// New builds the provider client for key, against baseURL when it is set
func New(key, baseURL string) *Service {
	cfg := openai.DefaultConfig(key)
	if baseURL != "" {
		logger.Info(logger.SERVICE, "Using OpenAI-compatible endpoint %s", baseURL)
		cfg.BaseURL = baseURL
	}

	return &Service{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (s *Service) GetClient() *openai.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}
