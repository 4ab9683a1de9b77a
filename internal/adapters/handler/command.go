package handler

import (
	"context"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/domain/command"
	"imageconverter/internal/core/port"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// FileResolver turns Telegram file IDs into download links.
type FileResolver interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

type Authorizer interface {
	IsAuthorized(ctx context.Context, chatID int64) bool
}

type Command struct {
	commandRegistry port.CommandRegistry
	files           FileResolver
	authorizer      Authorizer
	timeout         time.Duration
	inflight        sync.WaitGroup
}

func NewCommand(commandRegistry port.CommandRegistry, files FileResolver, authorizer Authorizer,
	timeout time.Duration) *Command {
	return &Command{commandRegistry: commandRegistry, files: files, authorizer: authorizer, timeout: timeout}
}

// Handle dispatches a command update to its handler. The handler runs in the background so the bot keeps
// polling; Wait blocks until all of them have returned.
func (c *Command) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	log.Debug().Str("message", text).Msg("received command")

	cmd := command.ParseCommand(text)
	commandHandler, err := c.commandRegistry.Get(cmd)
	if err != nil {
		log.Debug().Str("command", cmd).Msg("no handler for command")
		return
	}

	if c.authorizer != nil && !c.authorizer.IsAuthorized(ctx, msg.Chat.ID) {
		return
	}

	message := &domain.Message{
		ID:       msg.ID,
		ChatID:   msg.Chat.ID,
		Username: getUserNameOrFirstName(msg.From),
		Text:     text,
	}

	if fileID, fileName := findAttachment(msg); fileID != "" {
		message.FileName = fileName
		message.FileURL = c.resolveFile(ctx, fileID)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		err := commandHandler.Respond(context.WithoutCancel(ctx), c.timeout, message)
		if err != nil {
			log.Err(err).Str("command", cmd).Msg("failed to respond to command")
		}
	}()
}

// Wait blocks until every dispatched command has finished.
func (c *Command) Wait() {
	c.inflight.Wait()
}

func (c *Command) resolveFile(ctx context.Context, fileID string) string {
	f, err := c.files.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		log.Error().Err(err).Str("fileId", fileID).Msg("error getting file from telegram api")
		return ""
	}

	return c.files.FileDownloadLink(f)
}

// findAttachment returns the file of the message itself, falling back to the message it replies to. Documents
// win over photos since Telegram recompresses photos.
func findAttachment(msg *models.Message) (string, string) {
	for _, m := range []*models.Message{msg, msg.ReplyToMessage} {
		if m == nil {
			continue
		}

		if m.Document != nil {
			return m.Document.FileID, m.Document.FileName
		}

		if len(m.Photo) > 0 {
			return findLargestImage(m.Photo), ""
		}
	}

	return "", ""
}

func findLargestImage(photos []models.PhotoSize) string {
	largest := photos[len(photos)-1]
	for _, photo := range photos {
		if photo.Width*photo.Height > largest.Width*largest.Height {
			largest = photo
		}
	}

	return largest.FileID
}

func getUserNameOrFirstName(user *models.User) string {
	if user == nil {
		return ""
	}

	if user.Username == "" {
		return user.FirstName
	}

	return "@" + user.Username
}
