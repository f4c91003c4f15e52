package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/util"
)

// Engine describes photos and writes instructions through the Gemini API.
// Gemini has no image-generation endpoint in this client, so it is not a Renderer.
type Engine struct {
	APIKey string
	Model  string
	opts   []option.ClientOption
}

var _ llm.TextEngine = (*Engine)(nil)

func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		opts:   opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Describe(ctx context.Context, in llm.DescribeRequest) (string, error) {
	parts := []genai.Part{
		genai.Text(in.User),
		genai.Blob{MIMEType: in.Image.MIMEType, Data: in.Image.Data},
	}
	return e.generate(ctx, "describe", in.System, in.MaxTokens, parts)
}

func (e *Engine) Write(ctx context.Context, in llm.WriteRequest) (string, error) {
	return e.generate(ctx, "write", "", in.MaxTokens, []genai.Part{genai.Text(in.Prompt)})
}

func (e *Engine) generate(ctx context.Context, op, system string, maxTokens int, parts []genai.Part) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", op, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	configure(m, system, maxTokens)

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", op, err)
	}
	txt := util.StripCodeFences(firstText(resp))
	if txt == "" {
		return "", fmt.Errorf("gemini %s: empty response", op)
	}
	return txt, nil
}

func configure(m *genai.GenerativeModel, system string, maxTokens int) {
	if maxTokens > 0 {
		m.SetMaxOutputTokens(int32(maxTokens))
	}
	if s := strings.TrimSpace(system); s != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(s)}}
	}
}

// firstText joins the text parts of the first candidate.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
