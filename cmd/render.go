package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/deepgram/voxchat/internal/conversation"
)

// renderer prints conversation changes to a terminal. Streaming replies are
// printed incrementally on one line; user turns are not echoed.
type renderer struct {
	mu sync.Mutex
	w  io.Writer

	// shown is the number of content bytes printed per message ID
	shown map[string]int
	// pendingAt maps a store position to the pending reply rendered there
	pendingAt map[int]string
	// open is the reply whose line has not been terminated
	open string
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{
		w:         w,
		shown:     make(map[string]int),
		pendingAt: make(map[int]string),
	}
}

func (r *renderer) render(messages []conversation.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(messages) == 0 {
		r.closeLine()
		r.shown = make(map[string]int)
		r.pendingAt = make(map[int]string)
		fmt.Fprintln(r.w, "(conversation cleared)")
		return
	}

	for i, msg := range messages {
		if _, done := r.shown[msg.ID]; done && !msg.IsPending() && r.pendingAt[i] != msg.ID {
			continue
		}

		switch {
		case msg.Role == conversation.RoleUser:
			r.shown[msg.ID] = len(msg.Content)
		case msg.IsPending():
			r.pendingAt[i] = msg.ID
			r.appendTo(msg.ID, msg.Content)
		default:
			r.finish(i, msg)
		}
	}
}

// appendTo prints the unseen suffix of a growing reply
func (r *renderer) appendTo(id, content string) {
	printed := r.shown[id]
	if len(content) <= printed {
		return
	}
	if r.open != id {
		r.closeLine()
		fmt.Fprint(r.w, "assistant: ")
		r.open = id
		// a reply resumed after another line restarts from the top
		printed = 0
	}
	fmt.Fprint(r.w, content[printed:])
	r.shown[id] = len(content)
}

func (r *renderer) finish(i int, msg conversation.Message) {
	prev, wasPending := r.pendingAt[i]
	printed := r.shown[prev]
	delete(r.pendingAt, i)
	r.shown[msg.ID] = len(msg.Content)

	if wasPending && r.open == prev && printed <= len(msg.Content) {
		fmt.Fprintln(r.w, msg.Content[printed:])
		r.open = ""
		return
	}

	r.closeLine()
	fmt.Fprintf(r.w, "%s: %s\n", msg.Role, msg.Content)
}

func (r *renderer) closeLine() {
	if r.open != "" {
		fmt.Fprintln(r.w)
		r.open = ""
	}
}

// syncWriter serializes writes from the renderer and the input loop
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
