package services

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/internal/infrastructure/openai"
	"github.com/deepgram/voxchat/internal/infrastructure/redis"
	"github.com/deepgram/voxchat/internal/services/chat"
	"github.com/deepgram/voxchat/pkg/ratelimit"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	chatService  chat.Service
	chatConfig   config.ChatConfig
	redisService *redis.Service
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	log.Info().Bool("available", redisService != nil).Msg("Initializing Redis service")

	// Initialize OpenAI service (required)
	openAIService := openai.NewService()
	if openAIService == nil {
		return nil, fmt.Errorf("OpenAI service is required - set OPENAI_KEY")
	}

	chatConfig := config.GetChatConfig()
	chatService, err := chat.NewService(openAIService.GetClient(), chatConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize chat service - required for message processing")
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}
	log.Info().
		Str("model", chatConfig.Model).
		Bool("streaming", chatConfig.Streaming).
		Msg("Initializing chat service")

	log.Info().Msg("All services initialized successfully")

	return &Services{
		chatService:  chatService,
		chatConfig:   chatConfig,
		redisService: redisService,
	}, nil
}

// New assembles services from already-built parts
func New(chatService chat.Service, chatConfig config.ChatConfig, redisService *redis.Service) *Services {
	return &Services{
		chatService:  chatService,
		chatConfig:   chatConfig,
		redisService: redisService,
	}
}

// GetChatService returns the chat service
func (s *Services) GetChatService() chat.Service {
	return s.chatService
}

// GetChatConfig returns the chat route settings
func (s *Services) GetChatConfig() config.ChatConfig {
	return s.chatConfig
}

// GetRateLimitCounter returns the shared rate-limit counter, or nil when
// Redis is unavailable
func (s *Services) GetRateLimitCounter() ratelimit.Counter {
	if s.redisService == nil {
		return nil
	}
	return s.redisService
}

// Close releases external connections
func (s *Services) Close() error {
	if s.redisService == nil {
		return nil
	}
	return s.redisService.Close()
}
