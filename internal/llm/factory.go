package llm

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/thiagozs/go-llmchat/internal/config"
)

// New monta o backend de chat selecionado em cfg.Backend. Quem chama deve
// fechar o backend quando ele implementar io.Closer.
func New(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.SugaredLogger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Proxy:   cfg.Proxy,
			System:  cfg.SystemPrompt,
			Retries: cfg.Retries,
			Out:     out,
			Logger:  log,
		})
	case config.BackendGemini:
		return NewGemini(ctx, GeminiOptions{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			System:  cfg.SystemPrompt,
			Retries: cfg.Retries,
			Out:     out,
			Logger:  log,
		})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}

// NewImages monta o gerador de imagens da OpenAI.
func NewImages(cfg *config.Config, out io.Writer, log *zap.SugaredLogger) (*ImageGenerator, error) {
	return NewImageGenerator(ImageOptions{
		OpenAI: OpenAIOptions{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.ImageModel,
			BaseURL: cfg.OpenAI.BaseURL,
			Proxy:   cfg.Proxy,
			Out:     out,
			Logger:  log,
		},
		Size: cfg.OpenAI.ImageSize,
	})
}
