// Package speech abstracts speech capture and playback. Recognition and
// synthesis engines are external; the chat session only sees these
// interfaces.
package speech

import (
	"context"
)

// Input supplies transcribed user speech. Interim results arrive with
// final=false and may be superseded by later ones.
type Input interface {
	Start(ctx context.Context) error
	Stop() error
	OnTranscript(fn func(text string, final bool))
}

// Output speaks text in the given language. Speak blocks until the
// utterance ends or ctx is cancelled.
type Output interface {
	Speak(ctx context.Context, text, language string) error
}

// Trigger is notified once for every finalized assistant reply
type Trigger interface {
	OnFinalAssistantMessage(text, language string)
}

// TriggerFunc adapts a function to Trigger
type TriggerFunc func(text, language string)

func (f TriggerFunc) OnFinalAssistantMessage(text, language string) {
	f(text, language)
}
