package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/util"
)

// Engine talks to the OpenAI chat completions and images APIs (or any
// compatible endpoint via baseURL).
type Engine struct {
	APIKey     string
	Model      string
	ImageModel string
	client     *goopenai.Client
}

var (
	_ llm.TextEngine = (*Engine)(nil)
	_ llm.Renderer   = (*Engine)(nil)
)

func New(key, model, imageModel, baseURL string) *Engine {
	cfg := goopenai.DefaultConfig(strings.TrimSpace(key))
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	cfg.HTTPClient = &http.Client{
		// no overall timeout: every call carries a stage deadline in its context
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          20,
		},
	}
	return &Engine{
		APIKey:     strings.TrimSpace(key),
		Model:      strings.TrimSpace(model),
		ImageModel: strings.TrimSpace(imageModel),
		client:     goopenai.NewClientWithConfig(cfg),
	}
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Describe(ctx context.Context, in llm.DescribeRequest) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	if !isOpenAIImageMIME(in.Image.MIMEType) {
		return "", fmt.Errorf("openai describe: unsupported image type %q", in.Image.MIMEType)
	}
	req := goopenai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: in.System},
			{
				Role: goopenai.ChatMessageRoleUser,
				MultiContent: []goopenai.ChatMessagePart{
					{Type: goopenai.ChatMessagePartTypeText, Text: in.User},
					{
						Type: goopenai.ChatMessagePartTypeImageURL,
						ImageURL: &goopenai.ChatMessageImageURL{
							URL:    in.Image.DataURL(),
							Detail: goopenai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens: in.MaxTokens,
	}
	return e.complete(ctx, "describe", req)
}

func (e *Engine) Write(ctx context.Context, in llm.WriteRequest) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	req := goopenai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: in.Prompt},
		},
		MaxTokens: in.MaxTokens,
	}
	return e.complete(ctx, "write", req)
}

func (e *Engine) complete(ctx context.Context, op string, req goopenai.ChatCompletionRequest) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai %s: empty response", op)
	}
	out := util.StripCodeFences(resp.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("openai %s: empty content (finish_reason=%s)", op, resp.Choices[0].FinishReason)
	}
	return out, nil
}

// Render requests one square image. dall-e models answer with a URL; models that
// only return base64 are decoded into Data.
func (e *Engine) Render(ctx context.Context, in llm.RenderRequest) (brick.RenderReference, error) {
	if e.APIKey == "" {
		return brick.RenderReference{}, errors.New("OPENAI_API_KEY is empty")
	}
	size := in.Size
	if size == "" {
		size = goopenai.CreateImageSize1024x1024
	}
	req := goopenai.ImageRequest{
		Prompt: in.Prompt,
		Model:  e.ImageModel,
		N:      1,
		Size:   size,
	}
	if strings.HasPrefix(e.ImageModel, "dall-e") {
		req.ResponseFormat = goopenai.CreateImageResponseFormatURL
	}
	resp, err := e.client.CreateImage(ctx, req)
	if err != nil {
		return brick.RenderReference{}, fmt.Errorf("openai render: %w", err)
	}
	if len(resp.Data) == 0 {
		return brick.RenderReference{}, errors.New("openai render: no image returned")
	}
	img := resp.Data[0]
	ref := brick.RenderReference{URL: img.URL, PromptUsed: in.Prompt}
	if img.RevisedPrompt != "" {
		ref.PromptUsed = img.RevisedPrompt
	}
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return brick.RenderReference{}, fmt.Errorf("openai render: bad base64: %w", err)
		}
		ref.Data = data
		ref.MIMEType = "image/png"
	}
	if ref.URL == "" && len(ref.Data) == 0 {
		return brick.RenderReference{}, errors.New("openai render: image has neither url nor data")
	}
	return ref, nil
}

func isOpenAIImageMIME(m string) bool {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
