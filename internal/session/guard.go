package session

import (
	"github.com/deepgram/voxchat/internal/conversation"
	"github.com/deepgram/voxchat/internal/transport"
)

// guardedSink applies store changes on behalf of one turn. Each change is
// checked under the session lock, so a superseded or cleared turn can never
// write to the store.
type guardedSink struct {
	session *Session
	turn    *turn
}

func (g *guardedSink) Append(msg conversation.Message) error {
	return g.apply(func(store *conversation.Store) error {
		return store.Append(msg)
	})
}

func (g *guardedSink) UpdateByID(id, content string) error {
	return g.apply(func(store *conversation.Store) error {
		return store.UpdateByID(id, content)
	})
}

func (g *guardedSink) Finalize(id string, final conversation.Message) error {
	return g.apply(func(store *conversation.Store) error {
		return store.Finalize(id, final)
	})
}

func (g *guardedSink) apply(fn func(*conversation.Store) error) error {
	g.session.mu.Lock()
	defer g.session.mu.Unlock()

	if g.session.staleLocked(g.turn) {
		return transport.ErrCanceled
	}
	return fn(g.session.store)
}
