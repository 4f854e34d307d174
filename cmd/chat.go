package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/deepgram/voxchat/internal/config"
	"github.com/deepgram/voxchat/internal/conversation"
	"github.com/deepgram/voxchat/internal/session"
	"github.com/deepgram/voxchat/internal/speech"
	"github.com/deepgram/voxchat/internal/transport"
	"github.com/deepgram/voxchat/pkg/language"
)

func newChatCmd() *cobra.Command {
	var endpoint, lang string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the route from the terminal",
		Long: `Reads one turn per line from stdin and prints replies as they stream in.
A new line supersedes a reply that is still streaming.

Commands:
  /clear       start a new conversation
  /lang <tag>  reply language (en, hi, ml, fr, or any language name)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GetClientConfig()
			if endpoint != "" {
				cfg.Endpoint = endpoint
			}
			if lang != "" {
				cfg.Language = lang
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "chat route URL (default CHAT_ENDPOINT)")
	cmd.Flags().StringVar(&lang, "lang", "", "reply language (default DEFAULT_LANGUAGE)")
	return cmd
}

func newOutput(command string) (speech.Output, error) {
	if command == "" {
		return speech.LogOutput{}, nil
	}
	return speech.NewCommandOutput(command)
}

func runChat(ctx context.Context, cfg config.ClientConfig, in io.Reader, out io.Writer) error {
	output, err := newOutput(cfg.SpeechCommand)
	if err != nil {
		return err
	}
	player := speech.NewPlayer(output)
	out = &syncWriter{w: out}

	store := conversation.NewStore()
	store.OnChange(newRenderer(out).render)

	client := transport.NewClient(cfg.Endpoint, transport.WithTimeout(cfg.RequestTimeout))
	sess := session.New(client, cfg.Language, session.WithStore(store), session.WithTrigger(player))

	var turns sync.WaitGroup
	input := speech.NewLineInput(in)
	input.OnTranscript(func(text string, final bool) {
		if !final || runCommand(sess, text, out) {
			return
		}
		// the turn starts here, in input order; only the reply runs in the background
		done := sess.Submit(ctx, text)
		turns.Add(1)
		go func() {
			defer turns.Done()
			if err := <-done; err != nil {
				log.Error().Err(err).Msg("Failed to record chat turn")
			}
		}()
	})

	if err := input.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Replying in %s. Type /clear to start over, /lang <tag> to switch language.\n", language.Name(cfg.Language))

	select {
	case <-input.Done():
	case <-ctx.Done():
		input.Stop()
	}

	turns.Wait()
	if ctx.Err() != nil {
		player.Stop()
	}
	player.Wait()
	return nil
}

// runCommand handles slash commands and reports whether text was one
func runCommand(sess *session.Session, text string, out io.Writer) bool {
	if !strings.HasPrefix(text, "/") {
		return false
	}

	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/clear":
		sess.Clear()
	case "/lang":
		if arg == "" {
			fmt.Fprintf(out, "Replying in %s\n", language.Name(sess.Language()))
			break
		}
		if l, ok := language.Lookup(arg); ok {
			arg = l.Tag
		}
		sess.SetLanguage(arg)
		fmt.Fprintf(out, "Replying in %s\n", language.Name(arg))
	default:
		fmt.Fprintf(out, "Unknown command %s\n", name)
	}
	return true
}
