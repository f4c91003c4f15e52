// Package scale holds the size presets offered to users and resolves a preset
// choice (plus an optional custom piece count) into a piece target.
package scale

import (
	"fmt"
	"strings"

	"truckbrick/api/internal/brick"
)

const (
	MinCustomPieces = 300
	MaxCustomPieces = 5000

	CustomKey = "custom"
)

// Preset is a named bundle of piece count, scale ratio and blurb.
// TargetPieces is nil for the custom preset.
type Preset struct {
	Key          string `json:"key"`
	Label        string `json:"label"`
	TargetPieces *int   `json:"target_pieces,omitempty"`
	ScaleRatio   string `json:"scale_ratio,omitempty"`
	Description  string `json:"description"`
}

func (p Preset) IsCustom() bool { return p.TargetPieces == nil }

// Resolution is a preset with its piece target settled.
type Resolution struct {
	Preset Preset
	Pieces int
}

func pieces(n int) *int { return &n }

var presets = []Preset{
	{
		Key:          "small",
		Label:        "Small (desk model)",
		TargetPieces: pieces(600),
		ScaleRatio:   "1:24–1:28",
		Description:  "Compact desk-sized model with simplified bodywork and a basic steering setup.",
	},
	{
		Key:          "medium",
		Label:        "Medium (shelf display)",
		TargetPieces: pieces(1200),
		ScaleRatio:   "1:17–1:20",
		Description:  "Shelf display model with working steering, suspension and an opening cab or bed.",
	},
	{
		Key:          "large",
		Label:        "Large (detailed showpiece)",
		TargetPieces: pieces(2500),
		ScaleRatio:   "1:12–1:14",
		Description:  "Detailed showpiece with a full drivetrain, piston engine and room for motorization.",
	},
	{
		Key:         CustomKey,
		Label:       "Custom",
		Description: fmt.Sprintf("Pick your own piece budget between %d and %d pieces.", MinCustomPieces, MaxCustomPieces),
	},
}

// Catalog is the read-only preset list.
type Catalog struct {
	presets []Preset
}

func NewCatalog() *Catalog {
	return &Catalog{presets: presets}
}

// Presets returns a copy of the presets in display order.
func (c *Catalog) Presets() []Preset {
	return append([]Preset(nil), c.presets...)
}

// Default is the medium preset.
func (c *Catalog) Default() Preset {
	p, _ := c.Lookup("medium")
	return p
}

// Lookup finds a preset by key or label, ignoring case.
func (c *Catalog) Lookup(name string) (Preset, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.presets {
		if n == p.Key || n == strings.ToLower(p.Label) {
			return p, true
		}
	}
	return Preset{}, false
}

// Resolve settles the piece target. customPieces is only read for the custom preset
// and must lie within [MinCustomPieces, MaxCustomPieces].
func (c *Catalog) Resolve(name string, customPieces int) (Resolution, error) {
	p, ok := c.Lookup(name)
	if !ok {
		return Resolution{}, brick.NewConfigurationError(fmt.Sprintf("unknown scale preset %q", name))
	}
	if !p.IsCustom() {
		return Resolution{Preset: p, Pieces: *p.TargetPieces}, nil
	}
	if err := ValidateCustomPieces(customPieces); err != nil {
		return Resolution{}, err
	}
	return Resolution{Preset: p, Pieces: customPieces}, nil
}

func ValidateCustomPieces(n int) error {
	if n < MinCustomPieces || n > MaxCustomPieces {
		return brick.NewConfigurationError(fmt.Sprintf("custom piece count %d outside [%d, %d]", n, MinCustomPieces, MaxCustomPieces))
	}
	return nil
}
