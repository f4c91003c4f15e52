package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/llm"
)

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
	})
	return string(b)
}

type captured struct {
	path string
	auth string
	body map[string]any
}

func newServer(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if got != nil {
			got.path = r.URL.Path
			got.auth = r.Header.Get("Authorization")
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEngine_Describe(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, chatResponse("red pickup, double cab, off-road tires"), &got)
	e := New("sk-test", "gpt-4o", "dall-e-3", srv.URL+"/v1")

	out, err := e.Describe(context.Background(), llm.DescribeRequest{
		System:    "system text",
		User:      "user text",
		Image:     brick.EncodedImage{Data: []byte{0xFF, 0xD8, 0xFF}, MIMEType: "image/jpeg"},
		MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "red pickup, double cab, off-road tires", out)

	assert.Equal(t, "/v1/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.Equal(t, "gpt-4o", got.body["model"])
	assert.EqualValues(t, 500, got.body["max_tokens"])

	msgs := got.body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "user text", parts[0].(map[string]any)["text"])
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", img["url"])
}

func TestEngine_WriteStripsFences(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, chatResponse("```markdown\n## Model Overview\n- Name: Trail Hauler\n```"), &got)
	e := New("sk-test", "gpt-4o", "", srv.URL+"/v1")

	out, err := e.Write(context.Background(), llm.WriteRequest{Prompt: "build it", MaxTokens: 1800})
	require.NoError(t, err)
	assert.Equal(t, "## Model Overview\n- Name: Trail Hauler", out)
	assert.EqualValues(t, 1800, got.body["max_tokens"])
	msgs := got.body["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "build it", msgs[0].(map[string]any)["content"])
}

func TestEngine_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		srv := newServer(t, http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, nil)
		e := New("sk-test", "gpt-4o", "", srv.URL+"/v1")
		_, err := e.Write(context.Background(), llm.WriteRequest{Prompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai write")
	})
	t.Run("empty content", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, chatResponse("   "), nil)
		e := New("sk-test", "gpt-4o", "", srv.URL+"/v1")
		_, err := e.Write(context.Background(), llm.WriteRequest{Prompt: "x"})
		assert.ErrorContains(t, err, "empty content")
	})
	t.Run("no key", func(t *testing.T) {
		e := New("", "gpt-4o", "", "")
		_, err := e.Describe(context.Background(), llm.DescribeRequest{})
		assert.EqualError(t, err, "OPENAI_API_KEY is empty")
	})
	t.Run("unsupported mime", func(t *testing.T) {
		e := New("sk", "gpt-4o", "", "")
		_, err := e.Describe(context.Background(), llm.DescribeRequest{Image: brick.EncodedImage{MIMEType: "application/pdf"}})
		assert.ErrorContains(t, err, "unsupported image type")
	})
}

func TestEngine_RenderURL(t *testing.T) {
	var got captured
	srv := newServer(t, http.StatusOK, `{"created":1,"data":[{"url":"https://img.example/truck.png","revised_prompt":"a brick truck"}]}`, &got)
	e := New("sk-test", "gpt-4o", "dall-e-3", srv.URL+"/v1")

	ref, err := e.Render(context.Background(), llm.RenderRequest{Prompt: "brick truck", Size: "1024x1024"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/truck.png", ref.URL)
	assert.Equal(t, "a brick truck", ref.PromptUsed)

	assert.Equal(t, "/v1/images/generations", got.path)
	assert.Equal(t, "dall-e-3", got.body["model"])
	assert.EqualValues(t, 1, got.body["n"])
	assert.Equal(t, "1024x1024", got.body["size"])
	assert.Equal(t, "url", got.body["response_format"])
}

func TestEngine_RenderBase64(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	reply := `{"created":1,"data":[{"b64_json":"` + base64.StdEncoding.EncodeToString(png) + `"}]}`
	srv := newServer(t, http.StatusOK, reply, nil)
	e := New("sk-test", "gpt-4o", "gpt-image-1", srv.URL+"/v1")

	ref, err := e.Render(context.Background(), llm.RenderRequest{Prompt: "brick truck"})
	require.NoError(t, err)
	assert.Equal(t, png, ref.Data)
	assert.Equal(t, "image/png", ref.MIMEType)
	assert.Equal(t, "brick truck", ref.PromptUsed)
	assert.Empty(t, ref.URL)
}

func TestEngine_RenderEmpty(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"created":1,"data":[]}`, nil)
	e := New("sk-test", "gpt-4o", "dall-e-3", srv.URL+"/v1")
	_, err := e.Render(context.Background(), llm.RenderRequest{Prompt: "x"})
	assert.True(t, err != nil && strings.Contains(err.Error(), "no image returned"))
}
