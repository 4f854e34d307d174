package config

import (
	"github.com/deepgram/voxchat/pkg/logger"
)

// GetOpenAIKey returns the provider API key
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_KEY", "")
	if value == "" {
		logger.Warn(logger.CONFIG, "OPENAI_KEY environment variable not set")
	}
	return value
}

// GetOpenAIBaseURL returns an OpenAI-compatible base URL, or empty for the default endpoint
func GetOpenAIBaseURL() string {
	return GetEnvOrDefault("OPENAI_BASE_URL", "")
}
