package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"
)

// OpenAIOptions configura o backend de chat da OpenAI.
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Proxy   string
	System  string
	Retries int
	Out     io.Writer
	Logger  *zap.SugaredLogger
	// HTTPClient substitui o cliente montado a partir de Proxy (testes).
	HTTPClient *http.Client
}

// OpenAI implementa Backend e ImageSender sobre chat completions com streaming.
type OpenAI struct {
	client  openai.Client
	model   string
	system  string
	retries int
	out     io.Writer
	log     *zap.SugaredLogger
}

func httpClientWithProxy(proxy string) (*http.Client, error) {
	tr := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("proxy: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return &http.Client{Transport: tr}, nil
}

func buildOpenAIClient(o OpenAIOptions) (openai.Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(o.APIKey), option.WithMaxRetries(0)}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	hc := o.HTTPClient
	if hc == nil && o.Proxy != "" {
		var err error
		hc, err = httpClientWithProxy(o.Proxy)
		if err != nil {
			return openai.Client{}, err
		}
	}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc))
	}
	return openai.NewClient(opts...), nil
}

func NewOpenAI(o OpenAIOptions) (*OpenAI, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, fmt.Errorf("openai: %w (OPENAI_API_KEY)", ErrNoAPIKey)
	}
	client, err := buildOpenAIClient(o)
	if err != nil {
		return nil, err
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return &OpenAI{
		client:  client,
		model:   o.Model,
		system:  strings.TrimSpace(o.System),
		retries: o.Retries,
		out:     o.Out,
		log:     o.Logger,
	}, nil
}

func (b *OpenAI) Name() string { return b.model }

// Monta as mensagens para a chamada da API: system (se houver), histórico e
// por fim a mensagem atual.
func (b *OpenAI) messagesForAPI(history []Turn, last openai.ChatCompletionMessageParamUnion) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if b.system != "" {
		msgs = append(msgs, openai.SystemMessage(b.system))
	}
	for _, t := range history {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		}
	}
	return append(msgs, last)
}

func (b *OpenAI) Send(ctx context.Context, message string, history []Turn) (Reply, error) {
	message = strings.TrimSpace(message)
	msgs := b.messagesForAPI(history, openai.UserMessage(message))
	return b.send(ctx, msgs)
}

// SendImage envia a imagem como data URL junto com a instrução em texto.
func (b *OpenAI) SendImage(ctx context.Context, message, mimeType, payload string) (Reply, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{}
	if strings.TrimSpace(message) != "" {
		parts = append(parts, openai.TextContentPart(message))
	}
	parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
		URL: fmt.Sprintf("data:%s;base64,%s", mimeType, payload),
	}))
	msgs := b.messagesForAPI(nil, openai.UserMessage(parts))
	return b.send(ctx, msgs)
}

func (b *OpenAI) send(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (Reply, error) {
	var reply Reply
	start := time.Now()
	err := withRetries(ctx, b.retries+1, 500*time.Millisecond, func() error {
		r, err := b.streamOnce(ctx, msgs)
		if err != nil {
			b.log.Debugw("openai send failed", "model", b.model, "error", err)
			return err
		}
		reply = r
		return nil
	})
	if err != nil {
		return Reply{}, fmt.Errorf("openai: %w", err)
	}
	b.log.Debugw("openai send", "model", b.model, "elapsed", time.Since(start), "usage", reply.Usage.String())
	return reply, nil
}

func (b *OpenAI) streamOnce(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(b.model),
		Messages: msgs,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	stream := b.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		built   strings.Builder
		usage   *Usage
		printed bool
	)
	for stream.Next() {
		chunk := stream.Current()
		if chunk.Usage.TotalTokens > 0 {
			usage = &Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if !printed {
			fmt.Fprintf(b.out, "(%s): ", b.model)
			printed = true
		}
		built.WriteString(delta)
		fmt.Fprint(b.out, delta)
	}
	if err := stream.Err(); err != nil {
		if printed {
			fmt.Fprintln(b.out)
		}
		return Reply{}, err
	}
	if !printed {
		return Reply{}, ErrEmptyResponse
	}
	return Reply{Text: built.String(), Usage: usage}, nil
}
