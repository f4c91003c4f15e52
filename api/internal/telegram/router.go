package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/logger"
	"truckbrick/api/internal/pipeline"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Archive keeps finished guides for /last. *store.GuideRepo implements it.
type Archive interface {
	Save(ctx context.Context, chatID int64, res *pipeline.Result) error
	Last(ctx context.Context, chatID int64) (*pipeline.Result, error)
}

type Router struct {
	Bot        Sender
	Pipeline   *pipeline.Pipeline
	Engines    *llm.Engines
	EngManager *llm.Manager
	Archive    Archive // optional
	Log        logger.Logger

	// Download fetches a Telegram file URL. Defaults to an HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)

	sessions sync.Map // chatID -> *session
	wg       sync.WaitGroup
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	msg := upd.Message
	cid := msg.Chat.ID

	if msg.IsCommand() {
		r.HandleCommand(*msg)
		return
	}
	if len(msg.Photo) > 0 {
		r.acceptPhoto(*msg)
		return
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		r.acceptPhoto(*msg)
		return
	}
	if text := strings.TrimSpace(msg.Text); text != "" && r.session(cid).awaitingPieces() {
		r.setPieces(cid, text)
		return
	}
	if msg.Text != "" {
		r.send(cid, "Send me a photo of a truck, or /start for help.")
	}
}

// Wait blocks until every running invocation has finished.
func (r *Router) Wait() { r.wg.Wait() }

// Shutdown cancels every running invocation.
func (r *Router) Shutdown() {
	r.sessions.Range(func(_, v any) bool {
		v.(*session).cancelRunning()
		return true
	})
}

func (r *Router) logger() logger.Logger {
	if r.Log == nil {
		return logger.NewNoOpLogger()
	}
	return r.Log
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().WithError(err).Warn("telegram send failed", map[string]interface{}{"chat_id": chatID})
	}
}

func (r *Router) sendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().WithError(err).Warn("telegram send failed", map[string]interface{}{"chat_id": chatID})
	}
}
