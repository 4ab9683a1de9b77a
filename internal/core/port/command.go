package port

import (
	"context"
	"imageconverter/internal/core/domain"
	"time"
)

// Command is a chat command such as /convert. Respond owns all replies to the message,
// so a returned error is only for logging.
type Command interface {
	Respond(ctx context.Context, timeout time.Duration, message *domain.Message) error
	GetCommand() string
}

type CommandRegistry interface {
	Register(handler Command)
	// Get returns command.ErrCommandNotFound for unknown names.
	Get(command string) (Command, error)
	ListCommands() []string
}
