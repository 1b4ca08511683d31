package line

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/samber/lo"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/logger"
)

// Messenger delivers answer replies through the Messaging API.
type Messenger struct {
	api API
}

// NewMessenger wraps a Messaging API client.
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

// Reply implements answer.Messenger.
func (m *Messenger) Reply(ctx context.Context, token string, r answer.Reply) error {
	start := time.Now()
	_, err := m.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: token,
		Messages:   []messaging_api.MessageInterface{buildMessage(r)},
	})
	m.log(ctx, "line.reply", r, start, err)
	if err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	return nil
}

// Push implements answer.Messenger. Each push carries a fresh retry key so the
// platform can deduplicate transport-level retries.
func (m *Messenger) Push(ctx context.Context, userID string, r answer.Reply) error {
	start := time.Now()
	_, err := m.api.PushMessage(&messaging_api.PushMessageRequest{
		To:       userID,
		Messages: []messaging_api.MessageInterface{buildMessage(r)},
	}, uuid.NewString())
	m.log(ctx, "line.push", r, start, err)
	if err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	return nil
}

func (m *Messenger) log(ctx context.Context, event string, r answer.Reply, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.Int("quick_replies", len(r.QuickReplies)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, "line", event, append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return
	}
	logger.Debug(ctx, "line", event, append(attrs, slog.String("status", "ok"))...)
}

func buildMessage(r answer.Reply) messaging_api.TextMessage {
	msg := messaging_api.TextMessage{Text: r.Text}
	if len(r.QuickReplies) == 0 {
		return msg
	}
	msg.QuickReply = &messaging_api.QuickReply{
		Items: lo.Map(r.QuickReplies, func(q answer.QuickReply, _ int) messaging_api.QuickReplyItem {
			return messaging_api.QuickReplyItem{
				Type:   "action",
				Action: &messaging_api.MessageAction{Label: q.Label, Text: q.Payload},
			}
		}),
	}
	return msg
}
