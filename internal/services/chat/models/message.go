package models

// ChatMessage represents a single message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the body of a chat route request. Language is a tag such as
// "hi" or a language name; unknown values are passed to the model verbatim.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
	Language string        `json:"language" validate:"max=64"`
}
