package speech

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrAlreadyStarted is returned by Start on a running input
var ErrAlreadyStarted = errors.New("input already started")

// LineInput is an Input that treats each line read from r as a final
// transcript. The CLI uses it for typed input.
type LineInput struct {
	r io.Reader

	mu       sync.Mutex
	handlers []func(text string, final bool)
	cancel   context.CancelFunc
	started  bool
	done     chan struct{}
}

func NewLineInput(r io.Reader) *LineInput {
	return &LineInput{r: r, done: make(chan struct{})}
}

func (in *LineInput) OnTranscript(fn func(text string, final bool)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.handlers = append(in.handlers, fn)
}

// Start reads lines until the reader ends, Stop is called, or ctx is done.
// Blank lines are skipped.
func (in *LineInput) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.started {
		in.mu.Unlock()
		return ErrAlreadyStarted
	}
	in.started = true
	ctx, in.cancel = context.WithCancel(ctx)
	in.mu.Unlock()

	go func() {
		defer close(in.done)
		scanner := bufio.NewScanner(in.r)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			in.emit(line)
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("Input reader failed")
		}
	}()
	return nil
}

// Stop ends delivery of transcripts. A read already blocked on the
// underlying reader returns on its own.
func (in *LineInput) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.cancel != nil {
		in.cancel()
	}
	return nil
}

// Done is closed when the reader is exhausted or the input stops
func (in *LineInput) Done() <-chan struct{} {
	return in.done
}

func (in *LineInput) emit(text string) {
	in.mu.Lock()
	handlers := make([]func(string, bool), len(in.handlers))
	copy(handlers, in.handlers)
	in.mu.Unlock()

	for _, fn := range handlers {
		fn(text, true)
	}
}
