package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	System  string
	Retries int
	Out     io.Writer
	Logger  *zap.SugaredLogger
}

// nextFunc devolve a próxima resposta do stream; iterator.Done no fim.
type nextFunc func() (*genai.GenerateContentResponse, error)

// Gemini implementa Backend e ImageSender sobre a Generative Language API.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	retries int
	out     io.Writer
	log     *zap.SugaredLogger
	// open abre o stream; com histórico usa uma ChatSession.
	open func(ctx context.Context, history []*genai.Content, parts []genai.Part) nextFunc
}

func NewGemini(ctx context.Context, o GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, fmt.Errorf("gemini: %w (GEMINI_API_KEY)", ErrNoAPIKey)
	}
	opts := []option.ClientOption{option.WithAPIKey(o.APIKey)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(o.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := client.GenerativeModel(o.Model)
	if sys := strings.TrimSpace(o.System); sys != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(sys)}}
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	g := &Gemini{
		client:  client,
		model:   model,
		name:    o.Model,
		retries: o.Retries,
		out:     o.Out,
		log:     o.Logger,
	}
	g.open = g.openStream
	return g, nil
}

func (g *Gemini) openStream(ctx context.Context, history []*genai.Content, parts []genai.Part) nextFunc {
	if len(history) > 0 {
		cs := g.model.StartChat()
		cs.History = history
		return cs.SendMessageStream(ctx, parts...).Next
	}
	return g.model.GenerateContentStream(ctx, parts...).Next
}

func (g *Gemini) Name() string { return g.name }

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// toGeminiHistory converte o histórico para o formato da API. O papel
// "assistant" vira "model", turnos de sistema ficam de fora (vão em
// SystemInstruction) e o histórico precisa começar por um turno do usuário.
func toGeminiHistory(history []Turn) []*genai.Content {
	var out []*genai.Content
	for _, t := range history {
		var role string
		switch t.Role {
		case RoleUser:
			role = "user"
		case RoleAssistant:
			role = "model"
		default:
			continue
		}
		if len(out) == 0 && role != "user" {
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

func (g *Gemini) Send(ctx context.Context, message string, history []Turn) (Reply, error) {
	message = strings.TrimSpace(message)
	return g.send(ctx, toGeminiHistory(history), genai.Text(message))
}

func (g *Gemini) SendImage(ctx context.Context, message, mimeType, payload string) (Reply, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: decode image: %w", err)
	}
	parts := []genai.Part{}
	if strings.TrimSpace(message) != "" {
		parts = append(parts, genai.Text(message))
	}
	parts = append(parts, genai.Blob{MIMEType: mimeType, Data: data})
	return g.send(ctx, nil, parts...)
}

func (g *Gemini) send(ctx context.Context, history []*genai.Content, parts ...genai.Part) (Reply, error) {
	var reply Reply
	start := time.Now()
	err := withRetries(ctx, g.retries+1, 500*time.Millisecond, func() error {
		r, err := g.drain(g.open(ctx, history, parts))
		if err != nil {
			g.log.Debugw("gemini send failed", "model", g.name, "error", err)
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: %w", err)
	}
	g.log.Debugw("gemini send", "model", g.name, "elapsed", time.Since(start), "usage", reply.Usage.String())
	return reply, nil
}

// drain imprime o stream conforme chega e devolve o texto completo.
func (g *Gemini) drain(next nextFunc) (Reply, error) {
	var (
		built   strings.Builder
		usage   *Usage
		printed bool
	)
	for {
		resp, err := next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if printed {
				fmt.Fprintln(g.out)
			}
			return Reply{}, err
		}
		if resp == nil {
			continue
		}
		if md := resp.UsageMetadata; md != nil {
			usage = &Usage{
				PromptTokens:     int64(md.PromptTokenCount),
				CompletionTokens: int64(md.CandidatesTokenCount),
				TotalTokens:      int64(md.TotalTokenCount),
			}
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		if !printed {
			fmt.Fprintf(g.out, "(%s): ", g.name)
			printed = true
		}
		built.WriteString(text)
		fmt.Fprint(g.out, text)
	}
	if !printed {
		return Reply{}, ErrEmptyResponse
	}
	return Reply{Text: built.String(), Usage: usage}, nil
}
