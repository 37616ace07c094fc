package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedContent = errors.New("unsupported content type")
	ErrEmptySource        = errors.New("source has no text")
	ErrTooLarge           = errors.New("response too large")
)

// StatusError é devolvido quando o servidor responde fora da faixa 2xx.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s for url: %s", e.Code, http.StatusText(e.Code), e.URL)
}

type SourceKind int

const (
	// SourceLiteral: o argumento é o próprio prompt, sem chunking.
	SourceLiteral SourceKind = iota
	// SourceText: texto extraído que entra na sessão.
	SourceText
	// SourceImage: imagem enviada uma vez como mensagem com visão.
	SourceImage
)

type Source struct {
	Kind SourceKind
	// Text é o texto extraído, ou o prompt literal.
	Text string
	// URL de origem, vazio para arquivos locais.
	URL string
	// MIME e Data (base64) só para imagens.
	MIME string
	Data string
}

const maxBodyBytes = 64 << 20

type LoaderOptions struct {
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
	// MaxBytes limita o corpo baixado; 0 = 64 MiB.
	MaxBytes int64
	Logger   *zap.SugaredLogger
}

type Loader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	log       *zap.SugaredLogger
}

func NewLoader(o LoaderOptions) *Loader {
	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	maxBytes := o.MaxBytes
	if maxBytes <= 0 {
		maxBytes = maxBodyBytes
	}
	return &Loader{client: client, userAgent: o.UserAgent, maxBytes: maxBytes, log: log}
}

// IsURL diz se arg parece uma URL http(s).
func IsURL(arg string) bool {
	lower := strings.ToLower(arg)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load classifica arg e devolve a fonte correspondente. Falhas de rede,
// arquivo ilegível, tipo não suportado e texto vazio voltam como erro, e a
// Source devolvida nesse caso é sempre o valor zero.
func (l *Loader) Load(ctx context.Context, arg string) (Source, error) {
	if IsURL(arg) {
		return l.loadURL(ctx, arg)
	}
	info, err := os.Stat(arg)
	if err == nil && info.Mode().IsRegular() {
		return l.loadFile(arg)
	}
	return Source{Kind: SourceLiteral, Text: arg}, nil
}

// Fetch baixa url com o User-Agent configurado.
func (l *Loader) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{URL: url, Code: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("fetch %s: %w (over %s)", url, ErrTooLarge, humanize.IBytes(uint64(l.maxBytes)))
	}
	ct := resp.Header.Get("Content-Type")
	l.log.Debugw("fetched", "url", url, "content_type", ct, "bytes", len(data), "elapsed", time.Since(start))
	return data, ct, nil
}

func (l *Loader) loadURL(ctx context.Context, url string) (Source, error) {
	data, ct, err := l.Fetch(ctx, url)
	if err != nil {
		return Source{}, err
	}
	kind := FromContentType(ct)
	if kind.Kind == KindUnknown && (ct == "" || kind.MIME == "application/octet-stream") {
		kind = Classify(data)
	}
	src, err := build(kind, data)
	if err != nil {
		return Source{}, err
	}
	src.URL = url
	return src, nil
}

func (l *Loader) loadFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	kind := Classify(data)
	l.log.Debugw("read file", "path", path, "kind", kind.Kind.String(), "bytes", len(data))
	return build(kind, data)
}

func build(kind ContentKind, data []byte) (Source, error) {
	if kind.Kind == KindImage {
		return Source{
			Kind: SourceImage,
			MIME: kind.MIME,
			Data: base64.StdEncoding.EncodeToString(data),
		}, nil
	}
	text, err := Extract(kind, data)
	if err != nil {
		return Source{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Source{}, fmt.Errorf("%w (%s)", ErrEmptySource, describe(kind))
	}
	return Source{Kind: SourceText, Text: text}, nil
}
