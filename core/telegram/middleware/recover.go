// Package middleware holds telebot middlewares shared by every route.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/logger"
	tghelpers "github.com/m3rciful/choicebot/core/telegram/helpers"
)

// RecoverMiddleware turns a handler panic into an error so the bot keeps running.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.String("status", "fail"),
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("telegram handler panic: %v", r)
			}
		}()
		return next(c)
	}
}
