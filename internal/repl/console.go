package repl

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"
)

const continuationPrompt = ". "

// lineEditor é a parte do *liner.State que o Console usa.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
	Close() error
}

// Console é o LineReader do terminal: edição de linha, histórico persistido
// em arquivo e continuação de linha com "\" no final.
type Console struct {
	line        lineEditor
	newEditor   func() lineEditor
	historyFile string
	log         *zap.SugaredLogger
}

func NewConsole(historyFile string, log *zap.SugaredLogger) *Console {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Console{historyFile: historyFile, log: log, newEditor: newLiner}
}

func newLiner() lineEditor {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return l
}

// o terminal só entra em modo raw na primeira leitura
func (c *Console) init() {
	if c.line != nil {
		return
	}
	c.line = c.newEditor()
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		if _, err := c.line.ReadHistory(f); err != nil {
			c.log.Debugw("read input history", "path", c.historyFile, "error", err)
		}
		f.Close()
	}
}

func (c *Console) ReadLine(prompt string) (string, error) {
	c.init()
	var parts []string
	p := prompt
	for {
		s, err := c.line.Prompt(p)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", ErrInterrupted
			}
			return "", err
		}
		// o arquivo de histórico guarda uma entrada por linha, então cada
		// linha vai como foi digitada, com a "\" de continuação
		if strings.TrimSpace(s) != "" {
			c.line.AppendHistory(s)
		}
		if strings.HasSuffix(s, `\`) {
			parts = append(parts, strings.TrimSuffix(s, `\`))
			p = continuationPrompt
			continue
		}
		parts = append(parts, s)
		break
	}
	return strings.Join(parts, "\n"), nil
}

// Close grava o histórico e devolve o terminal ao modo original.
func (c *Console) Close() error {
	if c.line == nil {
		return nil
	}
	defer func() {
		_ = c.line.Close()
		c.line = nil
	}()
	if c.historyFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = c.line.WriteHistory(f)
	return err
}
