package port

import "context"

type UsageLimiter interface {
	// AddUsage records bytes submitted for conversion by a chat.
	AddUsage(chatID int64, bytes int64)
	// CheckLimit reports whether the chat may convert more today, notifying the chat when it may not.
	CheckLimit(ctx context.Context, chatID int64) bool
}
