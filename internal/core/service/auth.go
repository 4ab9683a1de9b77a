package service

import (
	"context"
	"fmt"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Authorizer interface {
	IsAuthorized(ctx context.Context, chatID int64) bool
}

// ChatAuthorizer admits chats listed in telegram.allowed_chat_ids and tells everyone else whom to ask.
type ChatAuthorizer struct {
	allowlist []int64
	admin     string
	sender    port.TextSender
}

func NewAuthorizer(sender port.TextSender) (*ChatAuthorizer, error) {
	var list []int64

	if err := viper.UnmarshalKey("telegram.allowed_chat_ids", &list); err != nil {
		return nil, fmt.Errorf("failed to load allowed chat IDs: %w", err)
	}

	log.Info().Int("chats", len(list)).Msg("loaded chat allowlist")

	return &ChatAuthorizer{
		allowlist: list,
		admin:     viper.GetString("telegram.admin_username"),
		sender:    sender,
	}, nil
}

const forbidden = "This chat may not convert images. Ask @%s to add chat ID %d to the allowlist."

func (a *ChatAuthorizer) IsAuthorized(ctx context.Context, chatID int64) bool {
	if slices.Contains(a.allowlist, chatID) {
		return true
	}

	log.Info().Int64("chatId", chatID).Msg("refusing chat outside allowlist")

	_, err := a.sender.SendMessageReply(ctx,
		&domain.Message{ChatID: chatID},
		fmt.Sprintf(forbidden, a.admin, chatID))
	if err != nil {
		log.Err(err).Msg("failed to send unauthorized warning")
	}

	return false
}
