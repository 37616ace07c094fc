// Package session guarda o estado de uma sessão interativa: o texto de
// origem, a posição de leitura, o tamanho do chunk, o prompt padrão e o
// histórico da conversa.
package session

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/thiagozs/go-llmchat/internal/llm"
)

// Session percorre o texto em chunks. A posição é contada em runas, nunca
// passa do tamanho do texto, e o chunk é sempre >= 1.
type Session struct {
	source    []rune
	cursor    int
	chunkSize int
	prompt    string
	url       string
	history   []llm.Turn
	lastUsage *llm.Usage
}

// New cria a sessão. readAll faz o chunk cobrir o texto inteiro.
func New(text string, chunkSize int, readAll bool) *Session {
	s := &Session{}
	s.Load(text, "")
	if readAll {
		chunkSize = len(s.source)
	}
	s.SetChunkSize(chunkSize)
	return s
}

// Load troca o texto de origem e volta para o início. O histórico é mantido.
func (s *Session) Load(text, url string) {
	s.source = []rune(text)
	s.cursor = 0
	s.url = url
}

func (s *Session) Text() string { return string(s.source) }
func (s *Session) Len() int { return len(s.source) }
func (s *Session) Cursor() int { return s.cursor }
func (s *Session) ChunkSize() int { return s.chunkSize }
func (s *Session) URL() string { return s.url }
func (s *Session) Prompt() string { return s.prompt }

func (s *Session) SetURL(url string) { s.url = url }

// SetPrompt troca o prompt padrão e devolve o anterior.
func (s *Session) SetPrompt(p string) (previous string) {
	previous, s.prompt = s.prompt, p
	return previous
}

// SetChunkSize aplica n com mínimo de 1 e devolve o valor efetivo.
func (s *Session) SetChunkSize(n int) int {
	if n < 1 {
		n = 1
	}
	s.chunkSize = n
	return n
}

// Goto posiciona o cursor em pos, limitado a [0, Len()], e devolve a posição efetiva.
func (s *Session) Goto(pos int) int {
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.source) {
		pos = len(s.source)
	}
	s.cursor = pos
	return pos
}

func (s *Session) Reset() { s.cursor = 0 }

func (s *Session) Remaining() int { return len(s.source) - s.cursor }

func (s *Session) Done() bool { return s.cursor >= len(s.source) }

// PeekChunk devolve o próximo chunk sem avançar o cursor.
func (s *Session) PeekChunk() string {
	return string(s.source[s.cursor : s.cursor+s.step()])
}

// NextMessage monta a mensagem do próximo chunk com o prompt padrão anexado.
// ok é false quando não há mais texto.
func (s *Session) NextMessage() (message string, ok bool) {
	if s.Done() {
		return "", false
	}
	message = s.PeekChunk()
	if s.prompt != "" {
		message += "\n\n" + s.prompt
	}
	return message, true
}

// Advance move o cursor um chunk para frente, limitado ao fim do texto.
func (s *Session) Advance() int {
	return s.Goto(s.cursor + s.step())
}

// step é o tamanho do próximo chunk; não soma chunkSize ao cursor para não
// estourar int com .chunk enorme.
func (s *Session) step() int {
	return min(s.chunkSize, s.Remaining())
}

// Progress formata "(processed/total)(pct%)".
func (s *Session) Progress() string {
	total := len(s.source)
	pct := 0.0
	if total > 0 {
		pct = float64(s.cursor) / float64(total) * 100
	}
	return fmt.Sprintf("(%s/%s)(%.2f%%)",
		humanize.Comma(int64(s.cursor)), humanize.Comma(int64(total)), pct)
}

// History devolve uma cópia do histórico.
func (s *Session) History() []llm.Turn {
	out := make([]llm.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) HistoryLen() int { return len(s.history) }

// Record adiciona o par usuário/assistente de uma troca bem-sucedida.
func (s *Session) Record(user string, reply llm.Reply) {
	s.history = append(s.history,
		llm.Turn{Role: llm.RoleUser, Content: user},
		llm.Turn{Role: llm.RoleAssistant, Content: reply.Text},
	)
	if reply.Usage != nil {
		s.lastUsage = reply.Usage
	}
}

func (s *Session) LastUsage() *llm.Usage { return s.lastUsage }

func (s *Session) ClearHistory() { s.history = nil }

// PopOldest remove o turno mais antigo. Devolve false se o histórico está vazio.
func (s *Session) PopOldest() (llm.Turn, bool) {
	if len(s.history) == 0 {
		return llm.Turn{}, false
	}
	t := s.history[0]
	s.history = s.history[1:]
	return t, true
}
