// Package ingest transforma o argumento da linha de comando (URL, arquivo ou
// texto literal) em texto para a sessão ou numa imagem para envio único.
package ingest

import (
	"bytes"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindHTML
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindHTML:
		return "html"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// ContentKind é o resultado da classificação. MIME só é preenchido para imagens
// e para o que veio de um Content-Type.
type ContentKind struct {
	Kind Kind
	MIME string
}

const sniffLen = 1024

var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<body"),
}

// Classify decide o tipo do conteúdo olhando os bytes, sem confiar em extensão.
func Classify(data []byte) ContentKind {
	kind, _ := filetype.Match(data)
	switch {
	case kind.MIME.Value == "application/pdf":
		return ContentKind{Kind: KindPDF, MIME: kind.MIME.Value}
	case kind.MIME.Type == "image":
		return ContentKind{Kind: KindImage, MIME: kind.MIME.Value}
	case kind != filetype.Unknown:
		return ContentKind{Kind: KindUnknown, MIME: kind.MIME.Value}
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	for _, m := range htmlMarkers {
		if bytes.Contains(lower, m) {
			return ContentKind{Kind: KindHTML, MIME: "text/html"}
		}
	}

	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return ContentKind{Kind: KindUnknown}
	}
	return ContentKind{Kind: KindText, MIME: "text/plain"}
}

// FromContentType classifica pelo cabeçalho Content-Type. Devolve KindUnknown
// quando o cabeçalho não diz nada útil.
func FromContentType(contentType string) ContentKind {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mt == "application/pdf":
		return ContentKind{Kind: KindPDF, MIME: mt}
	case mt == "text/html", mt == "application/xhtml+xml":
		return ContentKind{Kind: KindHTML, MIME: mt}
	case strings.HasPrefix(mt, "image/"):
		return ContentKind{Kind: KindImage, MIME: mt}
	case strings.HasPrefix(mt, "text/"):
		return ContentKind{Kind: KindText, MIME: mt}
	default:
		return ContentKind{Kind: KindUnknown, MIME: mt}
	}
}
