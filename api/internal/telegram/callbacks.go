package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID

	// drop the keyboard once a choice is made
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})

	switch {
	case strings.HasPrefix(cb.Data, cbStyle):
		_, _ = r.Bot.Send(edit)
		r.applyStyle(cid, strings.TrimPrefix(cb.Data, cbStyle))
	case strings.HasPrefix(cb.Data, cbScale):
		_, _ = r.Bot.Send(edit)
		r.applyScale(cid, strings.TrimPrefix(cb.Data, cbScale))
	}
}
