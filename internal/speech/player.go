package speech

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Player plays finalized replies through an Output. A new reply cancels the
// one still being spoken and starts only after it has stopped; nothing is
// queued.
type Player struct {
	out Output

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(out Output) *Player {
	return &Player{out: out}
}

func (p *Player) OnFinalAssistantMessage(text, language string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	prev := p.done
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			return
		}
		if err := p.out.Speak(ctx, text, language); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("language", language).Msg("Speech playback failed")
		}
	}()
}

// Stop cancels the utterance in progress
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until the most recent utterance has ended
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
