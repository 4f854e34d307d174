package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// CommandOutput speaks by running an external TTS program. The template is
// split on whitespace; {text} and {lang} are replaced in each argument. When
// the template has no {text} placeholder the text is written to stdin.
//
//	espeak-ng -v {lang} {text}
//	say
type CommandOutput struct {
	args []string
}

func NewCommandOutput(template string) (*CommandOutput, error) {
	args := strings.Fields(template)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty speech command")
	}
	return &CommandOutput{args: args}, nil
}

func (o *CommandOutput) Speak(ctx context.Context, text, language string) error {
	args := make([]string, len(o.args))
	usesText := false
	for i, arg := range o.args {
		if strings.Contains(arg, "{text}") {
			usesText = true
		}
		arg = strings.ReplaceAll(arg, "{text}", text)
		args[i] = strings.ReplaceAll(arg, "{lang}", language)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if !usesText {
		cmd.Stdin = strings.NewReader(text)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speech command %s failed: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LogOutput records replies in the log instead of speaking them
type LogOutput struct{}

func (LogOutput) Speak(ctx context.Context, text, language string) error {
	log.Info().
		Str("language", language).
		Int("length", len(text)).
		Msg("Speaking reply")
	return nil
}
