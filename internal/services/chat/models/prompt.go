package models

import (
	"fmt"
	"strings"

	"github.com/deepgram/voxchat/pkg/language"
)

const coreInstructions = "You are a helpful assistant. Always respond in %s. Be concise and friendly."

// SystemPrompt represents the system-level instructions for the chat
type SystemPrompt struct {
	language string
	custom   string
}

// NewSystemPrompt creates a prompt that asks for replies in lang, which may be
// a tag or a language name
func NewSystemPrompt(lang string) *SystemPrompt {
	return &SystemPrompt{language: language.Name(lang)}
}

// SetCustom sets custom instructions for the prompt
func (sp *SystemPrompt) SetCustom(custom string) {
	sp.custom = strings.TrimSpace(custom)
}

// String returns the formatted system prompt
func (sp *SystemPrompt) String() string {
	core := fmt.Sprintf(coreInstructions, sp.language)
	if sp.custom == "" {
		return core
	}
	return core + "\n\nAdditional instructions:\n" + sp.custom
}
