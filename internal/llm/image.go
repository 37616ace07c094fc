package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/openai/openai-go/v2"
	"go.uber.org/zap"
)

type ImageOptions struct {
	OpenAI OpenAIOptions
	Size   string
}

// GeneratedImage é o resultado de uma geração: prompt revisado pelo modelo e URL.
type GeneratedImage struct {
	RevisedPrompt string
	URL           string
}

type ImageGenerator struct {
	client openai.Client
	model  string
	size   string
	out    io.Writer
	log    *zap.SugaredLogger
}

func NewImageGenerator(o ImageOptions) (*ImageGenerator, error) {
	if strings.TrimSpace(o.OpenAI.APIKey) == "" {
		return nil, fmt.Errorf("images: %w (OPENAI_API_KEY)", ErrNoAPIKey)
	}
	client, err := buildOpenAIClient(o.OpenAI)
	if err != nil {
		return nil, err
	}
	out := o.OpenAI.Out
	if out == nil {
		out = io.Discard
	}
	log := o.OpenAI.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ImageGenerator{client: client, model: o.OpenAI.Model, size: o.Size, out: out, log: log}, nil
}

func (g *ImageGenerator) Name() string { return g.model }

// Generate pede uma imagem e imprime "(model): <prompt revisado>" seguido da URL.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (GeneratedImage, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
	}
	if g.size != "" {
		params.Size = openai.ImageGenerateParamsSize(g.size)
	}
	g.log.Debugw("generating image", "model", g.model, "size", g.size)
	res, err := g.client.Images.Generate(ctx, params)
	if err != nil {
		return GeneratedImage{}, fmt.Errorf("images: %w", err)
	}
	if res == nil || len(res.Data) == 0 {
		return GeneratedImage{}, fmt.Errorf("images: %w", ErrEmptyResponse)
	}
	img := GeneratedImage{RevisedPrompt: res.Data[0].RevisedPrompt, URL: res.Data[0].URL}
	fmt.Fprintf(g.out, "(%s): %s\n\n%s\n", g.model, img.RevisedPrompt, img.URL)
	return img, nil
}
