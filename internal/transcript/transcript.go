// Package transcript grava cada troca num arquivo texto só de append e lê o
// arquivo de volta como pares usuário/modelo.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const userLabel = "user"

// Entry é uma troca registrada: quem respondeu e o conteúdo de cada lado.
type Entry struct {
	User     string
	Model    string
	Response string
}

// Log abre, escreve e fecha o arquivo a cada troca; nenhum handle fica aberto
// entre turnos.
type Log struct {
	path string
}

func New(path string) *Log { return &Log{path: path} }

func (l *Log) Path() string { return l.path }

// Append grava uma troca no formato:
//
//	### (user)
//	<message>
//
//	### (<model>)
//	<response>
//
func (l *Log) Append(model, user, response string) error {
	if l == nil || l.path == "" {
		return nil
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("transcript: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("### (" + userLabel + ")\n")
	b.WriteString(user + "\n")
	b.WriteString("\n")
	b.WriteString("### (" + model + ")\n")
	b.WriteString(response + "\n")
	b.WriteString("\n")
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("transcript: %w", err)
	}
	return nil
}

// ReadFile lê todas as trocas de path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	defer f.Close()
	return Read(f)
}

var headerRe = regexp.MustCompile(`^### \((.+)\)$`)

type readState int

const (
	wantUser readState = iota
	inUser
	inResponse
)

// Read faz o parse do formato escrito por Append. Um cabeçalho só conta no
// início do arquivo ou depois de uma linha em branco. Dentro de uma resposta
// só "### (user)" abre a próxima troca; qualquer outro cabeçalho, como um
// título markdown gerado pelo modelo, é conteúdo.
func Read(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	var (
		entries []Entry
		cur     Entry
		lines   []string
		state   = wantUser
	)
	flush := func() {
		switch state {
		case inUser:
			cur.User = body(lines)
			entries = append(entries, cur)
		case inResponse:
			cur.Response = body(lines)
			entries = append(entries, cur)
		}
		cur, lines = Entry{}, nil
	}

	prevBlank := true
	for sc.Scan() {
		line := sc.Text()
		var label string
		if m := headerRe.FindStringSubmatch(line); m != nil && prevBlank {
			label = m[1]
		}
		switch {
		case label == "":
		case state == wantUser && label != userLabel:
			return nil, fmt.Errorf("transcript: expected user section, got %q", label)
		case state == wantUser:
			state, prevBlank = inUser, false
			continue
		case state == inUser && label != userLabel:
			cur.User = body(lines)
			cur.Model, lines = label, nil
			state, prevBlank = inResponse, false
			continue
		case state == inResponse && label == userLabel:
			flush()
			state, prevBlank = inUser, false
			continue
		}
		if state != wantUser {
			lines = append(lines, line)
		}
		prevBlank = line == ""
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}
	flush()
	return entries, nil
}

// body desfaz o "\n\n" que Append coloca depois de cada conteúdo.
func body(lines []string) string {
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}
