// Package llm define o contrato comum dos backends de chat e as
// implementações para OpenAI e Gemini.
package llm

import (
	"context"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn é uma mensagem da conversa com seu papel.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage é a contagem de tokens informada pelo provedor, quando existe.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (u *Usage) String() string {
	if u == nil {
		return "None"
	}
	return fmt.Sprintf("prompt_tokens=%d completion_tokens=%d total_tokens=%d",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

// Reply é o texto completo da resposta mais o uso, se houver.
type Reply struct {
	Text  string
	Usage *Usage
}

// Backend envia uma mensagem, com ou sem histórico, e devolve a resposta
// completa. A saída parcial vai para o writer do backend durante o streaming.
type Backend interface {
	Name() string
	Send(ctx context.Context, message string, history []Turn) (Reply, error)
}

// ImageSender é implementado pelos backends que aceitam uma imagem com uma
// instrução em texto. payload vem em base64.
type ImageSender interface {
	SendImage(ctx context.Context, message, mimeType, payload string) (Reply, error)
}

var (
	ErrNoAPIKey          = errors.New("api key is not set")
	ErrImagesUnsupported = errors.New("backend does not accept images")
	ErrEmptyResponse     = errors.New("empty response")
)
