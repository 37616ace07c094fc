// Package repl implementa o loop interativo comum a todos os backends:
// chunking do texto carregado, comandos com ponto, envio de mensagens,
// histórico e transcript.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/thiagozs/go-llmchat/internal/ingest"
	"github.com/thiagozs/go-llmchat/internal/llm"
	"github.com/thiagozs/go-llmchat/internal/session"
)

// ErrInterrupted é devolvido pelo LineReader quando o usuário cancela a entrada.
var ErrInterrupted = errors.New("input interrupted")

// LineReader lê uma entrada do usuário. io.EOF e ErrInterrupted encerram o loop.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

type SourceLoader interface {
	Load(ctx context.Context, arg string) (ingest.Source, error)
}

// Searcher deixa o usuário escolher um resultado de busca. url vazio significa
// que a escolha foi cancelada.
type Searcher interface {
	Search(ctx context.Context, query string) (url string, err error)
}

type Transcript interface {
	Append(model, user, response string) error
}

// Settings são os valores de configuração que o loop usa ou mostra em .info.
type Settings struct {
	ChunkSize     int
	DefaultPrompt string
	SystemPrompt  string
	UserAgent     string
}

var (
	progressStyle = lipgloss.NewStyle().Faint(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Processor liga as dependências compartilhadas por todas as sessões.
type Processor struct {
	Settings   Settings
	Backend    llm.Backend
	Loader     SourceLoader
	Transcript Transcript
	Input      LineReader
	Out        io.Writer
	Searcher   Searcher
	OpenURL    func(url string) error
	Logger     *zap.SugaredLogger
}

func (p *Processor) logger() *zap.SugaredLogger {
	if p.Logger == nil {
		p.Logger = zap.NewNop().Sugar()
	}
	return p.Logger
}

func (p *Processor) printErr(err error) {
	fmt.Fprintln(p.Out, errorStyle.Render(err.Error()))
}

// Process trata um argumento da linha de comando: URL ou arquivo com texto
// abre uma sessão, imagem é enviada uma vez, qualquer outra coisa é um prompt
// literal enviado sem histórico. Devolve false quando a fonte não pôde ser lida.
func (p *Processor) Process(ctx context.Context, arg string, readAll bool) bool {
	src, err := p.Loader.Load(ctx, arg)
	if err != nil {
		p.logger().Debugw("load failed", "source", arg, "error", err)
		p.printErr(err)
		fmt.Fprintln(p.Out, "Failed to read.")
		return false
	}
	switch src.Kind {
	case ingest.SourceLiteral:
		p.OneShot(ctx, src.Text)
	case ingest.SourceImage:
		p.SendImage(ctx, p.Settings.DefaultPrompt, src)
	case ingest.SourceText:
		if err := p.Chat(ctx, src.Text, src.URL, readAll); err != nil {
			p.printErr(err)
		}
	}
	return true
}

// Chat abre uma sessão interativa sobre text. text vazio é chat puro.
func (p *Processor) Chat(ctx context.Context, text, url string, readAll bool) error {
	s := session.New(text, p.Settings.ChunkSize, readAll)
	s.SetPrompt(p.Settings.DefaultPrompt)
	s.SetURL(url)
	return p.NewLoop(s).Run(ctx)
}

// OneShot envia message sem histórico e registra no transcript.
func (p *Processor) OneShot(ctx context.Context, message string) {
	reply, err := p.Backend.Send(ctx, message, nil)
	p.finish(reply, err)
	p.record(message, reply, err)
}

// SendImage envia a imagem com message como instrução.
func (p *Processor) SendImage(ctx context.Context, message string, src ingest.Source) {
	is, ok := p.Backend.(llm.ImageSender)
	if !ok {
		p.printErr(fmt.Errorf("%s: %w", p.Backend.Name(), llm.ErrImagesUnsupported))
		return
	}
	reply, err := is.SendImage(ctx, message, src.MIME, src.Data)
	p.finish(reply, err)
	if err == nil && reply.Usage != nil {
		fmt.Fprintln(p.Out, reply.Usage.String())
	}
	p.record(message, reply, err)
}

// finish fecha a linha da resposta em streaming ou imprime o erro.
func (p *Processor) finish(reply llm.Reply, err error) {
	if err != nil {
		p.printErr(err)
		return
	}
	if !strings.HasSuffix(reply.Text, "\n") {
		fmt.Fprintln(p.Out)
	}
}

// record grava a troca no transcript mesmo quando o envio falhou; nesse caso
// a resposta fica vazia.
func (p *Processor) record(message string, reply llm.Reply, sendErr error) {
	if p.Transcript == nil {
		return
	}
	response := reply.Text
	if sendErr != nil {
		response = ""
	}
	if err := p.Transcript.Append(p.Backend.Name(), message, response); err != nil {
		p.logger().Warnw("transcript write failed", "error", err)
		p.printErr(err)
	}
}
