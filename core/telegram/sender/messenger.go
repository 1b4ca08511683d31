// Package sender delivers answer replies through the Telegram Bot API.
package sender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/logger"
	tghelpers "github.com/m3rciful/choicebot/core/telegram/helpers"
	"github.com/m3rciful/choicebot/core/telegram/keyboard"
)

// Bot is the subset of *tele.Bot used for delivery.
type Bot interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Messenger implements answer.Messenger for Telegram. Telegram has no reply
// tokens: the reply token is the chat id of the inbound update.
type Messenger struct {
	bot Bot
}

// NewMessenger wraps a bot.
func NewMessenger(bot Bot) *Messenger {
	return &Messenger{bot: bot}
}

// Reply implements answer.Messenger.
func (m *Messenger) Reply(ctx context.Context, chatID string, r answer.Reply) error {
	return m.send(ctx, "send.reply", chatID, r)
}

// Push implements answer.Messenger. In private chats the user id is the chat id.
func (m *Messenger) Push(ctx context.Context, userID string, r answer.Reply) error {
	return m.send(ctx, "send.push", userID, r)
}

func (m *Messenger) send(ctx context.Context, action, target string, r answer.Reply) error {
	id, err := tghelpers.ParseID(target)
	if err != nil {
		return fmt.Errorf("telegram %s: bad chat id %q: %w", action, target, err)
	}

	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if markup := keyboard.QuickReplies(r.QuickReplies); markup != nil {
		opts.ReplyMarkup = markup
	}

	start := time.Now()
	_, err = m.bot.Send(tele.ChatID(id), r.Text, opts)
	attrs := []slog.Attr{
		slog.String("action", action),
		slog.Int("quick_replies", len(r.QuickReplies)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", SanitizeError(err)),
			slog.String("err_code", ClassifyError(err)),
		)...)
		return fmt.Errorf("telegram %s: %w", action, err)
	}
	logger.Debug(ctx, "tg.sender", "send.success", append(attrs, slog.String("status", "ok"))...)
	return nil
}
