// Package llm defines the generation-service boundary: vision description, text
// generation and image rendering. Provider adapters live in subpackages.
package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	"truckbrick/api/internal/brick"
)

type Engine interface {
	Name() string
	GetModel() string
}

// DescribeRequest is a vision chat request: system instruction, user text and
// one inline image.
type DescribeRequest struct {
	System    string
	User      string
	Image     brick.EncodedImage
	MaxTokens int
}

// WriteRequest is a text-only chat request.
type WriteRequest struct {
	Prompt    string
	MaxTokens int
}

// RenderRequest asks for exactly one square image.
type RenderRequest struct {
	Prompt string
	Size   string // e.g. "1024x1024"
}

type Describer interface {
	Engine
	Describe(ctx context.Context, in DescribeRequest) (string, error)
}

type Writer interface {
	Engine
	Write(ctx context.Context, in WriteRequest) (string, error)
}

type Renderer interface {
	Engine
	Render(ctx context.Context, in RenderRequest) (brick.RenderReference, error)
}

// TextEngine can both describe photos and write instructions.
type TextEngine interface {
	Describer
	Writer
}

// Engines holds the configured adapters. Nil fields are unconfigured.
type Engines struct {
	OpenAI   TextEngine
	Gemini   TextEngine
	Renderer Renderer
	Default  string
}

var ErrUnknownEngine = errors.New("unknown llm_name; use 'gpt' or 'gemini'")

// GetEngine resolves an engine by name. An empty name selects Default.
func (e *Engines) GetEngine(llmName string) (TextEngine, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	var eng TextEngine
	switch name {
	case "gpt", "openai":
		eng = e.OpenAI
	case "gemini":
		eng = e.Gemini
	default:
		return nil, ErrUnknownEngine
	}
	if eng == nil {
		return nil, errors.New("llm engine " + name + " is not configured")
	}
	return eng, nil
}

// Available lists the names of configured text engines.
func (e *Engines) Available() []string {
	var out []string
	if e.OpenAI != nil {
		out = append(out, "gpt")
	}
	if e.Gemini != nil {
		out = append(out, "gemini")
	}
	return out
}

// Manager remembers a per-chat engine choice on top of a default.
type Manager struct {
	def TextEngine
	m   sync.Map // chatID -> TextEngine
}

func NewManager(defaultEngine TextEngine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) TextEngine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(TextEngine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e TextEngine) {
	if e == nil {
		m.m.Delete(chatID)
		return
	}
	m.m.Store(chatID, e)
}
