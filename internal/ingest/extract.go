package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// ExtractPDF concatena o texto de cada página, cada uma precedida de "\n".
func ExtractPDF(data []byte) (text string, err error) {
	// o parser pode entrar em pânico com PDFs malformados
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf: page %d: %w", i, err)
		}
		b.WriteString("\n")
		b.WriteString(content)
	}
	return b.String(), nil
}

var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// ExtractHTML devolve o texto visível, com os trechos separados por um espaço
// e o espaço em branco colapsado.
func ExtractHTML(data []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(data))
	var words []string
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return strings.Join(words, " "), nil
			}
			return "", fmt.Errorf("html: %w", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipTags[string(name)] && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			words = append(words, strings.Fields(string(z.Text()))...)
		}
	}
}

// Extract converte data em texto conforme kind.
func Extract(kind ContentKind, data []byte) (string, error) {
	switch kind.Kind {
	case KindPDF:
		return ExtractPDF(data)
	case KindHTML:
		return ExtractHTML(data)
	case KindText:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, describe(kind))
	}
}

func describe(kind ContentKind) string {
	if kind.MIME != "" {
		return kind.MIME
	}
	return kind.Kind.String()
}
