package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/voxchat/internal/conversation"
)

const defaultReadSize = 4096

// ErrAlreadyRun is returned when an assembler is reused
var ErrAlreadyRun = errors.New("assembler already ran")

// State is the assembler lifecycle
type State int

const (
	Idle State = iota
	Reading
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Sink receives the assembler's conversation updates. *conversation.Store
// satisfies it.
type Sink interface {
	Append(msg conversation.Message) error
	UpdateByID(id, content string) error
	Finalize(id string, final conversation.Message) error
}

// Assembler merges one streamed reply into a single conversation message.
// It appends a pending placeholder, replaces its content with the
// accumulated text after every chunk, and finalizes it in place when the
// body ends.
//
// If reading fails for any reason other than cancellation, the text received
// so far is finalized as the reply and the error is returned with it. A
// reply that failed before producing any text is finalized as the standard
// error reply instead. On cancellation nothing further is written.
type Assembler struct {
	sink     Sink
	readSize int

	state         State
	decoder       *Decoder
	text          strings.Builder
	placeholderID string
	chunks        int
}

type AssemblerOption func(*Assembler)

// WithReadSize sets the size of the buffer used for each body read
func WithReadSize(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.readSize = n
		}
	}
}

func NewAssembler(sink Sink, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		sink:     sink,
		readSize: defaultReadSize,
		decoder:  NewDecoder(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) State() State {
	return a.state
}

// Text returns the text accumulated so far
func (a *Assembler) Text() string {
	return a.text.String()
}

// PlaceholderID returns the identity of the pending message, once created
func (a *Assembler) PlaceholderID() string {
	return a.placeholderID
}

// Run consumes body until it ends, fails, or ctx is cancelled, and returns
// the finalized message.
func (a *Assembler) Run(ctx context.Context, body io.Reader) (conversation.Message, error) {
	if a.state != Idle {
		return conversation.Message{}, ErrAlreadyRun
	}

	placeholder := conversation.NewPendingAssistantMessage()
	if err := a.sink.Append(placeholder); err != nil {
		a.state = Done
		return conversation.Message{}, fmt.Errorf("failed to add placeholder: %w", err)
	}
	a.placeholderID = placeholder.ID
	a.state = Reading

	buf := make([]byte, a.readSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			// a chunk that lands after cancellation is dropped
			if ctx.Err() != nil {
				return a.interrupt(ctx, context.Cause(ctx))
			}
			if uerr := a.apply(buf[:n]); uerr != nil {
				a.state = Done
				return conversation.Message{}, uerr
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			return a.finish()
		case err != nil:
			return a.interrupt(ctx, err)
		case ctx.Err() != nil:
			return a.interrupt(ctx, context.Cause(ctx))
		}
	}
}

func (a *Assembler) apply(chunk []byte) error {
	a.chunks++
	decoded := a.decoder.Decode(chunk, false)
	if decoded == "" {
		return nil
	}
	a.text.WriteString(decoded)

	log.Trace().
		Str("message_id", a.placeholderID).
		Int("chunk", a.chunks).
		Int("bytes", len(chunk)).
		Msg("Applying stream chunk")

	return a.sink.UpdateByID(a.placeholderID, a.text.String())
}

func (a *Assembler) finish() (conversation.Message, error) {
	a.state = Draining
	a.text.WriteString(a.decoder.Flush())

	final := conversation.NewAssistantMessage(a.text.String())
	if err := a.sink.Finalize(a.placeholderID, final); err != nil {
		a.state = Done
		return conversation.Message{}, err
	}
	a.state = Done

	if malformed := a.decoder.Malformed(); malformed > 0 {
		log.Warn().
			Str("message_id", final.ID).
			Int("malformed", malformed).
			Msg("Stream contained malformed UTF-8, replaced with U+FFFD")
	}
	log.Debug().
		Str("message_id", final.ID).
		Int("chunks", a.chunks).
		Int("length", len(final.Content)).
		Msg("Stream finalized")

	return final, nil
}

func (a *Assembler) interrupt(ctx context.Context, err error) (conversation.Message, error) {
	if errors.Is(err, context.Canceled) || errors.Is(context.Cause(ctx), context.Canceled) {
		a.state = Done
		log.Debug().Str("message_id", a.placeholderID).Msg("Stream cancelled")
		return conversation.Message{}, err
	}

	a.state = Draining
	a.text.WriteString(a.decoder.Flush())

	final := conversation.NewAssistantMessage(a.text.String())
	if a.text.Len() == 0 {
		final = conversation.NewErrorMessage()
	}
	if ferr := a.sink.Finalize(a.placeholderID, final); ferr != nil {
		a.state = Done
		return conversation.Message{}, errors.Join(err, ferr)
	}
	a.state = Done

	log.Warn().
		Err(err).
		Str("message_id", final.ID).
		Int("chunks", a.chunks).
		Bool("partial", !final.Error).
		Msg("Stream interrupted, finalized partial reply")

	return final, fmt.Errorf("stream interrupted after %d chunks: %w", a.chunks, err)
}
