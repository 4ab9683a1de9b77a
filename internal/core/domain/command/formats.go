package command

import (
	"context"
	"fmt"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Formats struct {
	textSender port.TextSender
	command    string
}

func NewFormats(textSender port.TextSender, command string) *Formats {
	return &Formats{textSender: textSender, command: command}
}

func (f *Formats) GetCommand() string {
	return f.command
}

func (f *Formats) Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error {
	log.Info().Int64("chatId", message.ChatID).Str("command", f.GetCommand()).Msg("handling request")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := f.textSender.SendMessageReply(ctx, message, FormatList())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
	}

	return nil
}

// FormatList renders the supported output formats and the convert usage line.
func FormatList() string {
	names := make([]string, len(domain.OutputFormats))
	for i, f := range domain.OutputFormats {
		names[i] = f.String()
	}

	return fmt.Sprintf("Supported output formats: %s\n%s", strings.Join(names, ", "), convertUsage)
}
