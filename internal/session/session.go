package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/voxchat/internal/conversation"
	"github.com/deepgram/voxchat/internal/metrics"
	"github.com/deepgram/voxchat/internal/speech"
	"github.com/deepgram/voxchat/internal/stream"
	"github.com/deepgram/voxchat/internal/transport"
)

// maxBufferedReply bounds a non-streamed reply body
const maxBufferedReply = 1 << 20

// Sender is the transport used by a session. Prepare must not block on the
// network: it registers the call, cancelling the previous one, and Do on
// the returned call sends it.
type Sender interface {
	Prepare(ctx context.Context, turn transport.Turn) (*transport.Call, error)
	Cancel()
}

// Session is one chat conversation: it owns the message store, sends each
// user turn, merges the reply into the store and hands finished replies to
// the playback trigger.
//
// Failures never escape Send. Cancelled requests are dropped silently;
// network and API failures become a single assistant error message.
type Session struct {
	// mu orders guarded store mutations against Clear and supersession
	mu       sync.Mutex
	store    *conversation.Store
	sender   Sender
	trigger  speech.Trigger
	language string
	// turn numbers the latest started turn; Clear moves it too
	turn uint64
}

// turn is one started user turn and the call carrying it
type turn struct {
	id       uint64
	call     *transport.Call
	language string
}

type Option func(*Session)

// WithTrigger sets the playback trigger for finalized replies. The trigger
// runs under the session lock and must not call back into the session.
func WithTrigger(trigger speech.Trigger) Option {
	return func(s *Session) {
		s.trigger = trigger
	}
}

// WithStore uses an existing store, for callers that observe it
func WithStore(store *conversation.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

func New(sender Sender, language string, opts ...Option) *Session {
	s := &Session{
		store:    conversation.NewStore(),
		sender:   sender,
		language: language,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the conversation store for rendering
func (s *Session) Store() *conversation.Store {
	return s.store
}

func (s *Session) Messages() []conversation.Message {
	return s.store.Messages()
}

func (s *Session) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// SetLanguage changes the reply language for subsequent turns
func (s *Session) SetLanguage(language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = language
}

// Clear cancels the request in flight and empties the conversation. Nothing
// from a turn started before Clear reaches the store afterwards.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turn++
	s.sender.Cancel()
	s.store.Clear()
	log.Info().Msg("Conversation cleared")
}

// Send posts text as a new user turn and blocks until the reply is complete,
// has failed, or was superseded. Blank input is ignored. The returned error
// is non-nil only when the store rejected a change.
func (s *Session) Send(ctx context.Context, text string) error {
	t, err := s.start(ctx, text)
	if t == nil {
		return err
	}
	return s.finish(t)
}

// Submit starts text as a new user turn before returning and finishes it in
// the background. Turns submitted one after another supersede each other in
// that order. The channel yields the result Send would have returned.
func (s *Session) Submit(ctx context.Context, text string) <-chan error {
	done := make(chan error, 1)
	t, err := s.start(ctx, text)
	if t == nil {
		done <- err
		close(done)
		return done
	}
	go func() {
		defer close(done)
		done <- s.finish(t)
	}()
	return done
}

// start records the user message and registers its call in one step, so the
// order of user messages is the order in which calls supersede each other.
// A nil turn means there is nothing left to do.
func (s *Session) start(ctx context.Context, text string) (*turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Append(conversation.NewUserMessage(text)); err != nil {
		return nil, fmt.Errorf("failed to add user message: %w", err)
	}
	s.turn++
	t := &turn{id: s.turn, language: s.language}

	call, err := s.sender.Prepare(ctx, transport.Turn{Text: text, Language: t.language})
	if err != nil {
		return nil, s.failLocked(t, err)
	}
	t.call = call
	return t, nil
}

func (s *Session) finish(t *turn) error {
	call := t.call
	defer call.Close()

	if err := call.Do(); err != nil {
		return s.fail(t, err)
	}

	sink := &guardedSink{session: s, turn: t}
	kind := transport.Classify(call.Response)
	log.Debug().Str("kind", kind.String()).Msg("Classified chat response")

	var (
		final conversation.Message
		err   error
	)
	switch kind {
	case transport.Streaming:
		final, err = stream.NewAssembler(sink).Run(call.Context(), call.Body())
		if err != nil && final.ID == "" {
			return s.fail(t, err)
		}
		if err != nil {
			// the reply was finalized with whatever text arrived
			s.report(call.Err(err))
		}
	default:
		final, err = s.readBuffered(sink, call.Body())
		if err != nil {
			return s.fail(t, err)
		}
	}

	metrics.ClientReplies.WithLabelValues(kind.String()).Inc()
	s.play(t, final)
	return nil
}

func (s *Session) readBuffered(sink *guardedSink, r io.Reader) (conversation.Message, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBufferedReply+1))
	if err != nil {
		return conversation.Message{}, err
	}
	truncated := len(body) > maxBufferedReply
	if truncated {
		body = body[:maxBufferedReply]
		log.Warn().Int("limit", maxBufferedReply).Msg("Buffered reply exceeds limit, truncating")
	}

	// a rune cut by the limit is held back rather than replaced
	decoder := stream.NewDecoder()
	text := decoder.Decode(body, !truncated)
	final := conversation.NewAssistantMessage(text)
	if err := sink.Append(final); err != nil {
		return conversation.Message{}, err
	}
	return final, nil
}

func (s *Session) play(t *turn, final conversation.Message) {
	if s.trigger == nil || final.Error || final.Role != conversation.RoleAssistant {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleLocked(t) {
		return
	}
	s.trigger.OnFinalAssistantMessage(final.Content, t.language)
}

// staleLocked reports whether t was superseded or cleared. s.mu must be held.
func (s *Session) staleLocked(t *turn) bool {
	return t.id != s.turn || (t.call != nil && t.call.Canceled())
}

// fail converts err into the conversation-visible outcome. Store invariant
// violations are the only errors returned to the caller.
func (s *Session) fail(t *turn, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failLocked(t, err)
}

func (s *Session) failLocked(t *turn, err error) error {
	var dup *conversation.DuplicateIDError
	if errors.As(err, &dup) || errors.Is(err, conversation.ErrFinalized) {
		return err
	}
	if t.call != nil {
		err = t.call.Err(err)
	}
	if transport.IsCanceled(err) || s.staleLocked(t) {
		metrics.ClientFailures.WithLabelValues("canceled").Inc()
		log.Debug().Msg("Chat request superseded")
		return nil
	}

	s.report(err)
	return s.store.Append(conversation.NewErrorMessage())
}

func (s *Session) report(err error) {
	reason := "network"
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		reason = "api"
	}
	metrics.ClientFailures.WithLabelValues(reason).Inc()
	log.Error().Err(err).Str("reason", reason).Msg("Chat request failed")
}
