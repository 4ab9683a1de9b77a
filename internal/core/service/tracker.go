package service

import (
	"context"
	"fmt"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Tracker interface {
	AddUsage(chatID int64, bytes int64)
	CheckLimit(ctx context.Context, chatID int64) bool
}

// UsageTracker counts source bytes submitted per chat and enforces a daily quota. A limit of zero disables it.
type UsageTracker struct {
	chats      map[int64]int64
	dailyLimit int64
	mutex      sync.Mutex
	sender     port.TextSender
}

func NewUsageTracker(ctx context.Context, sender port.TextSender) *UsageTracker {
	ut := &UsageTracker{
		chats:      make(map[int64]int64),
		sender:     sender,
		dailyLimit: viper.GetInt64("telegram.daily_byte_limit"),
	}

	go ut.ResetDailyLimit(ctx)

	return ut
}

func (t *UsageTracker) AddUsage(chatID int64, bytes int64) {
	t.mutex.Lock()
	t.chats[chatID] += bytes
	t.mutex.Unlock()
}

func (t *UsageTracker) usage(chatID int64) int64 {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.chats[chatID]
}

const overLimit = "You have used your daily conversion quota of %s. Quota will reset in %s."

func (t *UsageTracker) CheckLimit(ctx context.Context, chatID int64) bool {
	if t.dailyLimit <= 0 || t.usage(chatID) < t.dailyLimit {
		return true
	}

	_, err := t.sender.SendMessageReply(ctx,
		&domain.Message{ChatID: chatID},
		fmt.Sprintf(overLimit, formatBytes(t.dailyLimit), time.Until(getNextResetTime()).Truncate(time.Second)))
	if err != nil {
		log.Warn().Err(err).Msg("failed to send daily quota exceeded warning")
	}

	return false
}

func (t *UsageTracker) ResetDailyLimit(ctx context.Context) {
	reset := getNextResetTime()

	for {
		log.Debug().Time("reset", reset).Msg("running reset timer")
		select {
		case <-time.After(time.Until(reset)):
			log.Debug().Msg("resetting daily quota")
			t.mutex.Lock()
			t.chats = make(map[int64]int64)
			t.mutex.Unlock()
			time.Sleep(time.Second)
			reset = getNextResetTime()
		case <-ctx.Done():
			log.Debug().Msg("stopping daily quota reset")
			return
		}
	}
}

func getNextResetTime() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

func formatBytes(n int64) string {
	const unit = 1 << 10
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
