package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/config"
)

// TextEvent converts a webhook event into an answer.Event. Only text
// messages with a known sender qualify; ok is false for everything else.
func TextEvent(ev webhook.EventInterface) (answer.Event, bool) {
	me, ok := ev.(webhook.MessageEvent)
	if !ok {
		return answer.Event{}, false
	}
	text, ok := me.Message.(webhook.TextMessageContent)
	if !ok {
		return answer.Event{}, false
	}
	userID := sourceUserID(me.Source)
	if userID == "" {
		return answer.Event{}, false
	}
	return answer.Event{
		Platform:   config.PlatformLine,
		UserID:     userID,
		ReplyToken: me.ReplyToken,
		EventID:    me.WebhookEventId,
		Text:       text.Text,
	}, true
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func eventType(ev webhook.EventInterface) string {
	if ev == nil {
		return "unknown"
	}
	return ev.GetType()
}
