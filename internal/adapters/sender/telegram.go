package sender

import (
	"bytes"
	"context"
	"imageconverter/internal/core/domain"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

// TelegramMessageLimit is the longest text Telegram accepts in a single message.
const TelegramMessageLimit = 4096

// ChatActionInterval is how often a chat action is repeated; Telegram clears it after about five seconds.
var ChatActionInterval = 5 * time.Second

// TelegramBot is the subset of *bot.Bot the sender uses.
type TelegramBot interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

type Telegram struct {
	bot TelegramBot
}

func NewTelegram(bot TelegramBot) *Telegram {
	return &Telegram{bot: bot}
}

// SendMessageReply replies to message, splitting text that exceeds the Telegram limit. It returns the ID of the
// last message sent.
func (s *Telegram) SendMessageReply(ctx context.Context, message *domain.Message, text string) (int, error) {
	var id int

	for _, chunk := range splitText(text, TelegramMessageLimit) {
		sent, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          message.ChatID,
			Text:            chunk,
			ReplyParameters: replyTo(message),
		})
		if err != nil {
			log.Error().Err(err).Int64("chatId", message.ChatID).Msg("failed to send message reply")
			return 0, err
		}

		if sent != nil {
			id = sent.ID
		}
	}

	return id, nil
}

func (s *Telegram) SendDocumentReply(ctx context.Context, message *domain.Message, filename string,
	file []byte) error {
	params := &bot.SendDocumentParams{
		ChatID:                      message.ChatID,
		Document:                    &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(file)},
		DisableContentTypeDetection: true,
		ReplyParameters:             replyTo(message),
	}

	_, err := s.bot.SendDocument(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("failed to send document response")
		return err
	}

	return nil
}

// NotifyAndReturnError tells the chat what went wrong and hands err back to the caller. If the notification
// itself fails, that error is returned instead.
func (s *Telegram) NotifyAndReturnError(ctx context.Context, err error, message *domain.Message) error {
	_, sendErr := s.SendMessageReply(ctx, message, err.Error())
	if sendErr != nil {
		log.Error().Err(sendErr).AnErr("cause", err).Msg("failed to notify chat about error")
		return sendErr
	}

	return err
}

// SendChatAction repeats the action until ctx is done.
func (s *Telegram) SendChatAction(ctx context.Context, chatID int64, action domain.Action) {
	var chatAction models.ChatAction
	switch action {
	case domain.UploadingDocument:
		chatAction = models.ChatActionUploadDocument
	default:
		chatAction = models.ChatActionTyping
	}

	ticker := time.NewTicker(ChatActionInterval)
	defer ticker.Stop()

	log.Debug().Int64("chatId", chatID).Msg("starting action routine")
	for {
		_, err := s.bot.SendChatAction(ctx, &bot.SendChatActionParams{
			ChatID: chatID,
			Action: chatAction,
		})
		if err != nil {
			if ctx.Err() == nil {
				log.Err(err).Msg("error sending chat action")
			}
			return
		}

		select {
		case <-ctx.Done():
			log.Debug().Int64("chatId", chatID).Msg("done, stopping action routine")
			return
		case <-ticker.C:
		}
	}
}

func replyTo(message *domain.Message) *models.ReplyParameters {
	if message.ID == 0 {
		return nil
	}

	return &models.ReplyParameters{
		MessageID: message.ID,
		ChatID:    message.ChatID,
	}
}

func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > limit {
		chunks = append(chunks, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}

	return chunks
}
