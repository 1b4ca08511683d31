// Package router feeds Telegram text and quick-reply updates into the answer service.
package router

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/config"
	"github.com/m3rciful/choicebot/core/logger"
	tghelpers "github.com/m3rciful/choicebot/core/telegram/helpers"
	"github.com/m3rciful/choicebot/core/telegram/keyboard"
)

// startCommand is mapped onto the start word understood by the resolver.
const startCommand = "/start"

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// EventHandler processes one normalized inbound event.
type EventHandler interface {
	Handle(ctx context.Context, ev answer.Event) error
}

// AnswerRoutes builds the handlers for text messages, /start and quick-reply
// callbacks. Delivery errors are returned to the bot's OnError hook.
func AnswerRoutes(svc EventHandler, machine *answer.Machine) []Route {
	text := func(c tele.Context) error {
		start := time.Now()
		msg := c.Message()
		if msg == nil {
			return nil
		}
		ev := toEvent(c, msg.Text)
		return handleWithSummary(c, "answer.text", start, func() error {
			return deliver(c, svc, ev)
		})
	}

	startCmd := func(c tele.Context) error {
		start := time.Now()
		ev := toEvent(c, startCommand)
		return handleWithSummary(c, "answer.start", start, func() error {
			return deliver(c, svc, ev)
		})
	}

	callback := func(c tele.Context) error {
		start := time.Now()
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		_ = c.Respond()

		payload, ok := keyboard.Decode(cb.Data, machine.Question())
		if !ok {
			logHandlerSummary(c, "answer.callback", start, nil,
				slog.String("reason", "unknown_payload"),
				slog.String("payload", logger.SanitizeLimit(cb.Data, 64)),
			)
			return nil
		}
		ev := toEvent(c, payload)
		return handleWithSummary(c, "answer.callback", start, func() error {
			return deliver(c, svc, ev)
		})
	}

	return []Route{
		{Endpoint: startCommand, Handler: startCmd},
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: "\f" + keyboard.Unique, Handler: callback},
	}
}

func deliver(c tele.Context, svc EventHandler, ev answer.Event) error {
	if ev.UserID == "" {
		return nil
	}
	return svc.Handle(tghelpers.BuildContext(c), ev)
}

// toEvent normalizes an update. The chat id doubles as the reply token.
func toEvent(c tele.Context, text string) answer.Event {
	updateID, chatID, userID := tghelpers.IDs(c)
	if strings.TrimSpace(text) == startCommand {
		text = "start"
	}
	return answer.Event{
		Platform:   config.PlatformTelegram,
		UserID:     tghelpers.FormatID(userID),
		ReplyToken: tghelpers.FormatID(chatID),
		EventID:    strconv.Itoa(updateID),
		Text:       text,
	}
}
