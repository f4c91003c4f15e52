package brick

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Style is the building-system convention the guide is written for.
type Style string

const (
	StyleMouldKingTechnic Style = "Mould King Technic"
	StyleLegoTechnic      Style = "Lego Technic"
)

// Styles lists the supported styles in display order.
func Styles() []Style {
	return []Style{StyleMouldKingTechnic, StyleLegoTechnic}
}

func (s Style) String() string { return string(s) }

func (s Style) Valid() bool {
	return s == StyleMouldKingTechnic || s == StyleLegoTechnic
}

// Key is the short form used in commands and callback data.
func (s Style) Key() string {
	switch s {
	case StyleMouldKingTechnic:
		return "mouldking"
	case StyleLegoTechnic:
		return "lego"
	}
	return ""
}

// PartExample is a sample parts-list line in the style's own vocabulary.
func (s Style) PartExample() string {
	if s == StyleMouldKingTechnic {
		return "40x Mould King Liftarm 9L - Black"
	}
	return "45x Technic Beam 11L - Black"
}

// ParseStyle accepts display labels and short keys, case-insensitively.
func ParseStyle(s string) (Style, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(k)
	switch k {
	case "mouldking", "mouldkingtechnic", "mk", "mould":
		return StyleMouldKingTechnic, nil
	case "lego", "legotechnic", "technic":
		return StyleLegoTechnic, nil
	}
	return "", NewConfigurationError(fmt.Sprintf("unknown style %q: use lego or mouldking", s))
}

// EncodedImage is a transport-ready photo payload.
type EncodedImage struct {
	Data     []byte
	MIMEType string
}

func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

func (e EncodedImage) DataURL() string {
	return "data:" + e.MIMEType + ";base64," + e.Base64()
}

// TruckDescription is the vision model's free-text account of the photo.
type TruckDescription string

func (d TruckDescription) String() string { return string(d) }

// BuildRequestParams fully determines the build prompt.
type BuildRequestParams struct {
	Style            Style            `json:"style"`
	TargetPieces     int              `json:"target_pieces"`
	ScaleLabel       string           `json:"scale_label"`
	ScaleRatio       string           `json:"scale_ratio,omitempty"`
	ScaleText        string           `json:"scale_text"`
	Custom           bool             `json:"custom"`
	TruckDescription TruckDescription `json:"truck_description"`
}

// BuildResult is the generated guide. Markdown always carries the whole document;
// the section fields are set only when Segmented is true.
type BuildResult struct {
	Overview  string `json:"overview,omitempty"`
	PartsList string `json:"parts_list,omitempty"`
	Steps     string `json:"steps,omitempty"`
	Tips      string `json:"tips,omitempty"`
	Markdown  string `json:"markdown"`
	Segmented bool   `json:"segmented"`
}

// RenderReference points at a rendered illustration: a URL, inline bytes, or both.
type RenderReference struct {
	URL        string `json:"url,omitempty"`
	Data       []byte `json:"data,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	PromptUsed string `json:"prompt_used"`
}

type RenderState string

const (
	RenderSkipped  RenderState = "skipped"
	RenderRendered RenderState = "rendered"
	RenderFailed   RenderState = "failed"
)

// RenderOutcome is the optional render stage's result. Ref is set only for RenderRendered,
// Err only for RenderFailed.
type RenderOutcome struct {
	State RenderState      `json:"state"`
	Ref   *RenderReference `json:"ref,omitempty"`
	Err   error            `json:"-"`
}

func (o RenderOutcome) Available() bool {
	return o.State == RenderRendered && o.Ref != nil
}
