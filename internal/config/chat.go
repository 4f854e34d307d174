package config

import (
	"time"
)

const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultChatEndpoint   = "http://localhost:8080/api/chat"
	DefaultLanguage       = "en"
	DefaultRequestTimeout = 60 * time.Second
	DefaultTemperature    = float32(0.2)
)

// ChatConfig holds the server-side settings for the chat route
type ChatConfig struct {
	Model       string
	Temperature float32
	Streaming   bool
}

// GetChatConfig reads the chat route settings from the environment
func GetChatConfig() ChatConfig {
	return ChatConfig{
		Model:       GetEnvOrDefault("CHAT_MODEL", DefaultChatModel),
		Temperature: parseEnvFloat("CHAT_TEMPERATURE", DefaultTemperature),
		Streaming:   parseEnvBool("CHAT_STREAMING", true),
	}
}

// ClientConfig holds the settings for the chat client session
type ClientConfig struct {
	Endpoint       string
	Language       string
	RequestTimeout time.Duration
	SpeechCommand  string
}

// GetClientConfig reads the client session settings from the environment.
// A CHAT_REQUEST_TIMEOUT of 0 disables the request timeout.
func GetClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:       GetEnvOrDefault("CHAT_ENDPOINT", DefaultChatEndpoint),
		Language:       GetEnvOrDefault("DEFAULT_LANGUAGE", DefaultLanguage),
		RequestTimeout: parseEnvDuration("CHAT_REQUEST_TIMEOUT", DefaultRequestTimeout),
		SpeechCommand:  GetEnvOrDefault("SPEECH_COMMAND", ""),
	}
}

// GetListenAddr returns the address the HTTP server binds to
func GetListenAddr() string {
	return GetEnvOrDefault("LISTEN_ADDR", ":8080")
}
