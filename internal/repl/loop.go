package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/thiagozs/go-llmchat/internal/ingest"
	"github.com/thiagozs/go-llmchat/internal/llm"
	"github.com/thiagozs/go-llmchat/internal/session"
)

// Loop é uma sessão interativa sobre um único Session.
type Loop struct {
	p *Processor
	s *session.Session
	// trapInterrupt faz Ctrl+C durante um envio cancelar só o envio.
	trapInterrupt bool
}

func (p *Processor) NewLoop(s *session.Session) *Loop {
	return &Loop{p: p, s: s, trapInterrupt: true}
}

func (l *Loop) Session() *session.Session { return l.s }

// Run lê entradas até .quit, EOF, interrupção ou duas entradas vazias
// seguidas sem texto restante. Só devolve erro quando a leitura da entrada
// falha de um jeito que não seja fim de entrada.
func (l *Loop) Run(ctx context.Context) error {
	out := l.p.Out
	emptyCount := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		if l.s.Len() > 0 {
			fmt.Fprintln(out, progressStyle.Render(l.s.Progress()))
		}
		line, err := l.p.Input.ReadLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupted) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		cmd := Parse(strings.TrimSpace(line))
		if cmd.Kind != CmdContinue {
			emptyCount = 0
		}

		switch cmd.Kind {
		case CmdQuit:
			return nil
		case CmdContinue:
			msg, ok := l.s.NextMessage()
			if !ok {
				if emptyCount >= 1 {
					return nil
				}
				emptyCount++
				fmt.Fprintln(out, noticeStyle.Render("(Press Enter again to exit.)"))
				continue
			}
			emptyCount = 0
			if l.exchange(ctx, msg, nil) {
				l.s.Advance()
			}
		case CmdMessage:
			l.exchange(ctx, cmd.Arg, l.s.History())
		default:
			l.command(ctx, cmd)
		}
	}
}

// exchange envia uma mensagem, grava no transcript e, se deu certo, no
// histórico. Um Ctrl+C durante o envio cancela apenas esse envio.
func (l *Loop) exchange(ctx context.Context, message string, history []llm.Turn) bool {
	sendCtx := ctx
	if l.trapInterrupt {
		var stop context.CancelFunc
		sendCtx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}
	reply, err := l.p.Backend.Send(sendCtx, message, history)
	l.p.finish(reply, err)
	if err == nil {
		l.s.Record(message, reply)
	}
	l.p.record(message, reply, err)
	return err == nil
}

func (l *Loop) command(ctx context.Context, cmd Command) {
	out := l.p.Out
	switch cmd.Kind {
	case CmdInfo:
		l.info()
	case CmdHistory:
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(l.s.History()); err != nil {
			l.p.printErr(err)
		}
	case CmdClear:
		l.s.ClearHistory()
		fmt.Fprintln(out, "History cleared.")
	case CmdPop:
		if t, ok := l.s.PopOldest(); ok {
			fmt.Fprintf(out, "Removed oldest %s turn.\n", t.Role)
		} else {
			fmt.Fprintln(out, "History is empty.")
		}
	case CmdReset:
		l.s.Reset()
		fmt.Fprintln(out, "Going to the first.")
	case CmdGoto:
		fmt.Fprintf(out, "Going to %d\n", l.s.Goto(cmd.N))
	case CmdChunk:
		fmt.Fprintf(out, "chunk_size has been set to %d\n", l.s.SetChunkSize(cmd.N))
	case CmdPrompt:
		prev := l.s.SetPrompt(cmd.Arg)
		fmt.Fprintf(out, "PREVIOUS default prompt: %s\n", orNone(prev))
		fmt.Fprintf(out, "NEW default prompt: %s\n", cmd.Arg)
	case CmdOpen:
		l.open()
	case CmdSearch:
		l.search(ctx, cmd.Arg)
	case CmdRead:
		l.read(ctx, cmd.Arg)
	case CmdHelp:
		fmt.Fprint(out, helpText)
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func (l *Loop) info() {
	out := l.p.Out
	fmt.Fprintf(out, "Model: %s\n", l.p.Backend.Name())
	fmt.Fprintf(out, "Chunk size: %d\n", l.s.ChunkSize())
	fmt.Fprintf(out, "Default prompt: %s\n", orNone(l.s.Prompt()))
	fmt.Fprintf(out, "System prompt: %s\n", orNone(l.p.Settings.SystemPrompt))
	fmt.Fprintf(out, "History size: %d\n", l.s.HistoryLen())
	fmt.Fprintf(out, "Reading URL: %s\n", orNone(l.s.URL()))
	fmt.Fprintf(out, "User Agent: %s\n", orNone(l.p.Settings.UserAgent))
	fmt.Fprintf(out, "Last usage: %s\n", l.s.LastUsage().String())
}

func (l *Loop) open() {
	url := l.s.URL()
	if url == "" {
		fmt.Fprintln(l.p.Out, "No url to open.")
		return
	}
	if l.p.OpenURL == nil {
		fmt.Fprintln(l.p.Out, "No browser available.")
		return
	}
	if err := l.p.OpenURL(url); err != nil {
		l.p.printErr(err)
	}
}

func (l *Loop) search(ctx context.Context, query string) {
	if l.p.Searcher == nil {
		fmt.Fprintln(l.p.Out, "Search is not configured.")
		return
	}
	url, err := l.p.Searcher.Search(ctx, query)
	if err != nil {
		l.p.printErr(err)
		return
	}
	if url == "" {
		return
	}
	fmt.Fprintf(l.p.Out, "URL: %s\n", url)
	l.read(ctx, url)
}

// read carrega outra fonte na sessão atual: texto substitui o texto carregado
// e volta o cursor ao início, imagem é enviada uma vez.
func (l *Loop) read(ctx context.Context, arg string) {
	src, err := l.p.Loader.Load(ctx, arg)
	if err != nil {
		l.p.printErr(err)
		return
	}
	switch src.Kind {
	case ingest.SourceLiteral:
		fmt.Fprintf(l.p.Out, "Not a file or URL: %s\n", arg)
	case ingest.SourceImage:
		l.p.SendImage(ctx, l.s.Prompt(), src)
	case ingest.SourceText:
		l.s.Load(src.Text, src.URL)
		fmt.Fprintf(l.p.Out, "Loaded %d characters.\n", l.s.Len())
	}
}
