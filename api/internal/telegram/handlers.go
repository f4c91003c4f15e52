package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/scale"
	"truckbrick/api/internal/store"
)

const helpText = "Send me a photo of a truck and I will design a brick model of it: " +
	"a parts list, step-by-step instructions and, if enabled, a render.\n\n" +
	"/style - Mould King Technic or Lego Technic\n" +
	"/scale - Small, Medium, Large or Custom\n" +
	"/pieces N - custom piece budget (300-5000)\n" +
	"/render on|off - AI render of the finished model\n" +
	"/engine gpt|gemini - generation engine\n" +
	"/last - resend your previous guide\n" +
	"/cancel - stop the running build"

func (r *Router) HandleCommand(msg tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
		r.send(cid, r.settingsText(cid))
	case "style":
		r.handleStyle(cid, args)
	case "scale":
		r.handleScale(cid, args)
	case "pieces":
		r.setPieces(cid, args)
	case "render":
		r.handleRender(cid, args)
	case "engine":
		r.handleEngineCommand(cid, args)
	case "last":
		r.handleLast(cid)
	case "cancel":
		if r.session(cid).cancelRunning() {
			r.send(cid, "Build cancelled.")
		} else {
			r.send(cid, "Nothing is running.")
		}
	default:
		r.send(cid, "Unknown command. /start lists what I can do.")
	}
}

func (r *Router) settingsText(chatID int64) string {
	eng := r.EngManager.Get(chatID)
	name := "none"
	if eng != nil {
		name = eng.Name() + " (" + eng.GetModel() + ")"
	}
	return "Current settings:\n" + describeSettings(r.session(chatID).snapshot(), r.Pipeline.Catalog(), name)
}

func (r *Router) handleStyle(chatID int64, arg string) {
	if arg == "" {
		r.sendWithKeyboard(chatID, "Choose a building style:", makeStyleKeyboard())
		return
	}
	r.applyStyle(chatID, arg)
}

func (r *Router) applyStyle(chatID int64, arg string) {
	st, err := brick.ParseStyle(arg)
	if err != nil {
		r.send(chatID, brick.UserMessage(err))
		return
	}
	r.session(chatID).update(func(s *session) { s.style = st })
	r.send(chatID, "✅ Style: "+st.String())
}

func (r *Router) handleScale(chatID int64, arg string) {
	if arg == "" {
		r.sendWithKeyboard(chatID, "Choose a model size:", makeScaleKeyboard(r.Pipeline.Catalog().Presets()))
		return
	}
	r.applyScale(chatID, arg)
}

func (r *Router) applyScale(chatID int64, arg string) {
	p, ok := r.Pipeline.Catalog().Lookup(arg)
	if !ok {
		r.send(chatID, "Unknown size. Use small, medium, large or custom.")
		return
	}
	sess := r.session(chatID)
	if p.IsCustom() {
		sess.update(func(s *session) {
			s.scale = p.Key
			s.awaitPieces = s.customPieces == 0
		})
		if st := sess.snapshot(); st.CustomPieces > 0 {
			r.send(chatID, fmt.Sprintf("✅ Size: Custom, %d pieces. Change it with /pieces N.", st.CustomPieces))
			return
		}
		r.send(chatID, fmt.Sprintf("How many pieces? Send a number from %d to %d.", scale.MinCustomPieces, scale.MaxCustomPieces))
		return
	}
	sess.update(func(s *session) {
		s.scale = p.Key
		s.awaitPieces = false
	})
	r.send(chatID, fmt.Sprintf("✅ Size: %s (%d pieces, %s)", p.Label, *p.TargetPieces, p.ScaleRatio))
}

func (r *Router) setPieces(chatID int64, arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		r.send(chatID, fmt.Sprintf("Send a whole number from %d to %d.", scale.MinCustomPieces, scale.MaxCustomPieces))
		return
	}
	if err := scale.ValidateCustomPieces(n); err != nil {
		r.send(chatID, fmt.Sprintf("The piece count must be between %d and %d.", scale.MinCustomPieces, scale.MaxCustomPieces))
		return
	}
	r.session(chatID).update(func(s *session) {
		s.scale = scale.CustomKey
		s.customPieces = n
		s.awaitPieces = false
	})
	r.send(chatID, fmt.Sprintf("✅ Size: Custom, %d pieces", n))
}

func (r *Router) handleRender(chatID int64, arg string) {
	if !r.Pipeline.CanRender() {
		r.send(chatID, "Rendering is not available on this bot.")
		return
	}
	sess := r.session(chatID)
	switch strings.ToLower(arg) {
	case "on", "yes", "1":
		sess.update(func(s *session) { s.render = true })
	case "off", "no", "0":
		sess.update(func(s *session) { s.render = false })
	case "":
		sess.update(func(s *session) { s.render = !s.render })
	default:
		r.send(chatID, "Usage: /render on|off")
		return
	}
	r.send(chatID, "✅ Render: "+onOff(sess.snapshot().Render))
}

// handleEngineCommand switches the chat's description and instruction engine.
//
//	/engine gpt
//	/engine gemini
func (r *Router) handleEngineCommand(chatID int64, arg string) {
	if arg == "" {
		cur := r.EngManager.Get(chatID)
		name := "none"
		if cur != nil {
			name = cur.Name()
		}
		r.send(chatID, "Current engine: "+name+"\nAvailable: "+strings.Join(r.Engines.Available(), " | ")+
			"\nUsage: /engine gpt")
		return
	}
	eng, err := r.Engines.GetEngine(strings.Fields(arg)[0])
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+")")
}

func (r *Router) handleLast(chatID int64) {
	if r.Archive == nil {
		r.send(chatID, "Guide history is not enabled on this bot.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := r.Archive.Last(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		r.send(chatID, "No guide yet. Send a truck photo first.")
		return
	}
	if err != nil {
		r.logger().WithError(err).Error("load last guide", map[string]interface{}{"chat_id": chatID})
		r.send(chatID, "Could not load your previous guide.")
		return
	}
	r.sendDocument(chatID, res)
}
