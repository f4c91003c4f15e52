// Package bootstrap wires configuration into engines and the pipeline for the
// binaries under api/cmd.
package bootstrap

import (
	"truckbrick/api/internal/config"
	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/llm/gemini"
	"truckbrick/api/internal/llm/openai"
	"truckbrick/api/internal/logger"
	"truckbrick/api/internal/pipeline"
	"truckbrick/api/internal/scale"
)

// Engines builds every engine that has a credential. Only OpenAI can render.
func Engines(cfg *config.Config) *llm.Engines {
	engs := &llm.Engines{Default: cfg.DefaultEngine}
	if cfg.OpenAIAPIKey != "" {
		oa := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIImageModel, cfg.OpenAIBaseURL)
		engs.OpenAI = oa
		if cfg.RenderEnabled {
			engs.Renderer = oa
		}
	}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return engs
}

// Pipeline builds the pipeline around the default engine.
func Pipeline(cfg *config.Config, engs *llm.Engines, log logger.Logger) (*pipeline.Pipeline, error) {
	def, err := engs.GetEngine("")
	if err != nil {
		return nil, err
	}
	return pipeline.New(def, engs.Renderer, scale.NewCatalog(), pipeline.ConfigFrom(cfg), log), nil
}
