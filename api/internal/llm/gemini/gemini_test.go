package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbrick/api/internal/llm"
)

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))
	assert.Empty(t, firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("red pickup, "),
				genai.Blob{MIMEType: "image/png", Data: []byte{1}},
				genai.Text("double cab "),
			}},
		}},
	}
	assert.Equal(t, "red pickup, double cab", firstText(resp))
}

func TestConfigure(t *testing.T) {
	m := &genai.GenerativeModel{}
	configure(m, "  expert in trucks ", 500)

	require.NotNil(t, m.MaxOutputTokens)
	assert.EqualValues(t, 500, *m.MaxOutputTokens)
	require.NotNil(t, m.SystemInstruction)
	assert.Equal(t, []genai.Part{genai.Text("expert in trucks")}, m.SystemInstruction.Parts)

	bare := &genai.GenerativeModel{}
	configure(bare, "", 0)
	assert.Nil(t, bare.MaxOutputTokens)
	assert.Nil(t, bare.SystemInstruction)
}

func TestEngine_NoKey(t *testing.T) {
	e := New(" ", "gemini-2.5-flash")
	assert.Equal(t, "gemini", e.Name())
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())

	_, err := e.Write(context.Background(), llm.WriteRequest{Prompt: "x"})
	assert.EqualError(t, err, "GEMINI_API_KEY is empty")
}
