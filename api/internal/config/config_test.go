package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truckbrick/api/internal/brick"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", " sk-test ")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Equal(t, "dall-e-3", cfg.OpenAIImageModel)
	assert.Equal(t, "gpt", cfg.DefaultEngine)
	assert.Equal(t, 60*time.Second, cfg.DescribeTimeout)
	assert.Equal(t, 120*time.Second, cfg.InstructionTimeout)
	assert.Equal(t, 90*time.Second, cfg.RenderTimeout)
	assert.Equal(t, 500, cfg.DescribeMaxTokens)
	assert.Equal(t, 1800, cfg.InstructionMaxTokens)
	assert.Equal(t, "1024x1024", cfg.RenderSize)
	assert.True(t, cfg.RenderEnabled)
	assert.Equal(t, 90*24*time.Hour, cfg.GuideRetention)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DEFAULT_ENGINE", "Gemini")
	t.Setenv("DESCRIBE_TIMEOUT", "15s")
	t.Setenv("INSTRUCTION_MAX_TOKENS", "2400")
	t.Setenv("RENDER_ENABLED", "false")
	t.Setenv("RENDER_SIZE", " 512X512 ")
	t.Setenv("GUIDE_RETENTION", "0s")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.DefaultEngine)
	assert.Equal(t, 15*time.Second, cfg.DescribeTimeout)
	assert.Equal(t, 2400, cfg.InstructionMaxTokens)
	assert.False(t, cfg.RenderEnabled)
	assert.Equal(t, "512x512", cfg.RenderSize)
	assert.Zero(t, cfg.GuideRetention)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no credential", map[string]string{}},
		{"gemini default without key", map[string]string{"OPENAI_API_KEY": "k", "DEFAULT_ENGINE": "gemini"}},
		{"unknown engine", map[string]string{"OPENAI_API_KEY": "k", "DEFAULT_ENGINE": "claude"}},
		{"zero timeout", map[string]string{"OPENAI_API_KEY": "k", "RENDER_TIMEOUT": "0s"}},
		{"zero tokens", map[string]string{"OPENAI_API_KEY": "k", "DESCRIBE_MAX_TOKENS": "0"}},
		{"wide render", map[string]string{"OPENAI_API_KEY": "k", "RENDER_SIZE": "1792x1024"}},
		{"render size garbage", map[string]string{"OPENAI_API_KEY": "k", "RENDER_SIZE": "large"}},
		{"zero render size", map[string]string{"OPENAI_API_KEY": "k", "RENDER_SIZE": "0x0"}},
		{"negative retention", map[string]string{"OPENAI_API_KEY": "k", "GUIDE_RETENTION": "-1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New())
			assert.ErrorIs(t, err, brick.ErrConfiguration)
		})
	}
}

func TestValidateBot(t *testing.T) {
	c := &Config{}
	assert.ErrorIs(t, c.ValidateBot(), brick.ErrConfiguration)
	c.TelegramBotToken = "123:abc"
	assert.NoError(t, c.ValidateBot())
}
