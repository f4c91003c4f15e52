package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/pipeline"
)

// sendResult posts the guide text in chunks, the render if there is one and the
// markdown file.
func (r *Router) sendResult(chatID int64, res *pipeline.Result) {
	for _, part := range chunk(res.Guide.Markdown, maxChunk) {
		r.send(chatID, part)
	}

	switch res.Render.State {
	case brick.RenderRendered:
		r.sendRender(chatID, res.Render.Ref)
	case brick.RenderFailed:
		r.send(chatID, "🖼 "+brick.UserMessage(res.Render.Err))
	}

	r.sendDocument(chatID, res)
}

func (r *Router) sendRender(chatID int64, ref *brick.RenderReference) {
	if ref == nil {
		return
	}
	var file tgbotapi.RequestFileData
	switch {
	case len(ref.Data) > 0:
		file = tgbotapi.FileBytes{Name: "render.png", Bytes: ref.Data}
	case ref.URL != "":
		file = tgbotapi.FileURL(ref.URL)
	default:
		return
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = "AI render of your model"
	if _, err := r.Bot.Send(photo); err != nil {
		r.logger().WithError(err).Warn("send render failed", map[string]interface{}{"chat_id": chatID})
		if ref.URL != "" {
			r.send(chatID, "🖼 Render: "+ref.URL)
		}
	}
}

func (r *Router) sendDocument(chatID int64, res *pipeline.Result) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  res.FileName(),
		Bytes: []byte(res.Document()),
	})
	doc.Caption = fmt.Sprintf("%s · %s · about %d pieces", res.Params.Style, res.Params.ScaleLabel, res.Params.TargetPieces)
	if _, err := r.Bot.Send(doc); err != nil {
		r.logger().WithError(err).Warn("send document failed", map[string]interface{}{"chat_id": chatID})
	}
}
