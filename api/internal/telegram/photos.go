package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/imagecodec"
	"truckbrick/api/internal/pipeline"
)

// maxDownloadBytes matches the Bot API limit for files a bot may download.
const maxDownloadBytes = 20 << 20

// acceptPhoto downloads the photo and starts a build. A newer photo in the same
// chat cancels the running build, whose result is then dropped.
func (r *Router) acceptPhoto(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	fileID := ""
	if len(msg.Photo) > 0 {
		// the last size is the largest
		fileID = msg.Photo[len(msg.Photo)-1].FileID
	} else if msg.Document != nil {
		fileID = msg.Document.FileID
	}

	sess := r.session(cid)
	st := sess.snapshot()
	if _, _, err := r.Pipeline.Resolve(pipeline.Request{Style: st.Style.String(), Scale: st.Scale, CustomPieces: st.CustomPieces}); err != nil {
		r.send(cid, brick.UserMessage(err))
		return
	}

	ctx, seq := sess.begin(context.Background())
	r.send(cid, "📸 Photo received. Designing your model, this takes about a minute…")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.build(ctx, cid, seq, fileID, st)
	}()
}

func (r *Router) build(ctx context.Context, chatID int64, seq uint64, fileID string, st settings) {
	log := r.logger().With(map[string]interface{}{"chat_id": chatID, "seq": seq})
	sess := r.session(chatID)

	photo, err := r.fetch(ctx, fileID)
	if err != nil {
		if sess.finish(seq) {
			log.WithError(err).Warn("photo download failed", nil)
			r.send(chatID, "Could not download the photo: "+err.Error())
		}
		return
	}
	// image documents keep their EXIF orientation, compressed photos usually do not
	img, err := imagecodec.DecodeUpright(photo)
	if err != nil {
		if sess.finish(seq) {
			log.WithError(err).Warn("photo decode failed", nil)
			r.send(chatID, "⚠️ "+brick.UserMessage(err))
		}
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	res, err := r.Pipeline.WithEngine(r.EngManager.Get(chatID)).Run(ctx, pipeline.Request{
		Image:        img,
		Style:        st.Style.String(),
		Scale:        st.Scale,
		CustomPieces: st.CustomPieces,
		Render:       st.Render,
	})
	if !sess.finish(seq) {
		log.Debug("dropping superseded result", nil)
		return
	}
	if err != nil {
		r.send(chatID, "⚠️ "+brick.UserMessage(err))
		return
	}

	r.sendResult(chatID, res)

	if r.Archive != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Archive.Save(sctx, chatID, res); err != nil {
			log.WithError(err).Warn("archive guide failed", map[string]interface{}{"invocation_id": res.ID})
		}
	}
}

func (r *Router) fetch(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}
	dl := r.Download
	if dl == nil {
		dl = download
	}
	return dl(ctx, url)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxDownloadBytes {
		return nil, fmt.Errorf("file is larger than %d MB", maxDownloadBytes>>20)
	}
	return b, nil
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
