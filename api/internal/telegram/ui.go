package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/scale"
)

const (
	cbStyle = "style:"
	cbScale = "scale:"

	maxChunk = 3900
)

func makeStyleKeyboard() tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, s := range brick.Styles() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s.String(), cbStyle+s.Key()))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeScaleKeyboard(presets []scale.Preset) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(presets))
	for _, p := range presets {
		label := p.Label
		if !p.IsCustom() {
			label = fmt.Sprintf("%s · %d pcs · %s", p.Label, *p.TargetPieces, p.ScaleRatio)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbScale+p.Key),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func describeSettings(st settings, cat *scale.Catalog, engine string) string {
	size := st.Scale
	if p, ok := cat.Lookup(st.Scale); ok {
		if p.IsCustom() {
			if st.CustomPieces > 0 {
				size = fmt.Sprintf("Custom, %d pieces", st.CustomPieces)
			} else {
				size = "Custom (piece count not set, use /pieces N)"
			}
		} else {
			size = fmt.Sprintf("%s, %d pieces, %s", p.Label, *p.TargetPieces, p.ScaleRatio)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Style: %s\n", st.Style)
	fmt.Fprintf(&b, "Size: %s\n", size)
	fmt.Fprintf(&b, "Render: %s\n", onOff(st.Render))
	fmt.Fprintf(&b, "Engine: %s", engine)
	return b.String()
}

// chunk splits text into pieces of at most n runes, preferring line breaks.
func chunk(text string, n int) []string {
	var out []string
	r := []rune(strings.TrimSpace(text))
	for len(r) > n {
		cut := n
		for i := n; i > n/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(r[:cut])))
		r = r[cut:]
	}
	if s := strings.TrimSpace(string(r)); s != "" {
		out = append(out, s)
	}
	return out
}
