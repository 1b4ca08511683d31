// Package keyboard renders quick replies as Telegram inline keyboards.
package keyboard

import (
	"strconv"

	"github.com/samber/lo"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/choicebot/core/answer"
	"github.com/m3rciful/choicebot/core/question"
)

// Unique is the callback endpoint shared by all quick-reply buttons.
const Unique = "qr"

// PerRow is the number of choice buttons placed on one row.
const PerRow = 2

// InlineBtn describes a convenience wrapper for inline button properties.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// QuickReplies builds an inline keyboard for items. Button data carries the
// item position instead of the payload, because Telegram limits callback data
// to 64 bytes; Decode maps it back.
func QuickReplies(items []answer.QuickReply) *tele.ReplyMarkup {
	if len(items) == 0 {
		return nil
	}
	buttons := lo.Map(items, func(q answer.QuickReply, i int) InlineBtn {
		return InlineBtn{Text: q.Label, Unique: Unique, Data: strconv.Itoa(i)}
	})
	return InlineButtonsRows(lo.Chunk(buttons, PerRow)...)
}

// Decode resolves callback data produced by QuickReplies into the payload
// the user meant to send.
func Decode(data string, q question.Definition) (string, bool) {
	i, err := strconv.Atoi(data)
	if err != nil {
		return "", false
	}
	items := answer.QuickReplies(q, 0)
	if i < 0 || i >= len(items) {
		return "", false
	}
	return items[i].Payload, true
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}
