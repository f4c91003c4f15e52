package brick

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("run: %w", NewDescriptionServiceError(cause))

	assert.True(t, errors.Is(err, ErrDescriptionService))
	assert.False(t, errors.Is(err, ErrInstructionService))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrCodeDescriptionService, CodeOf(err))
	assert.Equal(t, StageDescribe, StageOf(err))
}

func TestStandardError_Message(t *testing.T) {
	err := NewConfigurationError("custom piece count 10 outside [300, 5000]")
	assert.Equal(t, "StandardError[CONFIGURATION_INVALID]: Invalid configuration: custom piece count 10 outside [300, 5000]", err.Error())

	bare := &StandardError{Code: ErrCodeRenderService, Message: "Render request failed"}
	assert.Equal(t, "StandardError[RENDER_SERVICE_FAILED]: Render request failed", bare.Error())
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("x")))
	assert.Equal(t, Stage(""), StageOf(nil))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", NewInstructionServiceError(context.DeadlineExceeded), "The generation service took too long to answer. Please try again."},
		{"image", NewInvalidImageError(errors.New("bad header")), "That photo could not be read. Please send a JPEG or PNG picture of the truck."},
		{"config", NewConfigurationError("missing key"), "Settings problem: missing key"},
		{"plain", errors.New("oops"), "Something went wrong: oops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in   string
		want Style
	}{
		{"Lego Technic", StyleLegoTechnic},
		{"lego", StyleLegoTechnic},
		{"Mould King Technic", StyleMouldKingTechnic},
		{"mould-king", StyleMouldKingTechnic},
		{" MK ", StyleMouldKingTechnic},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseStyle("duplo")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEncodedImage_DataURL(t *testing.T) {
	img := EncodedImage{Data: []byte{0xFF, 0xD8, 0xFF}, MIMEType: "image/jpeg"}
	assert.Equal(t, "data:image/jpeg;base64,/9j/", img.DataURL())
}

func TestRenderOutcome_Available(t *testing.T) {
	assert.False(t, RenderOutcome{State: RenderSkipped}.Available())
	assert.False(t, RenderOutcome{State: RenderFailed, Err: errors.New("x")}.Available())
	assert.True(t, RenderOutcome{State: RenderRendered, Ref: &RenderReference{URL: "u"}}.Available())
}
