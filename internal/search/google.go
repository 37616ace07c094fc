// Package search consulta o Google Custom Search e deixa o usuário escolher
// um resultado num seletor de terminal, com paginação.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

var (
	ErrNoResults     = errors.New("no results")
	ErrNotConfigured = errors.New("search needs GOOGLE_API_KEY and GOOGLE_CSE_ID")
)

type Link struct {
	Title string
	URL   string
}

// Page é uma página de resultados. Prev e Next são o índice inicial da página
// vizinha, 0 quando ela não existe.
type Page struct {
	Links []Link
	Prev  int64
	Next  int64
}

type ClientOptions struct {
	APIKey    string
	CSEID     string
	UserAgent string
	// Endpoint substitui a URL base da API (testes).
	Endpoint string
	Logger   *zap.SugaredLogger
}

type Client struct {
	svc *customsearch.Service
	cx  string
	log *zap.SugaredLogger
}

func NewClient(ctx context.Context, o ClientOptions) (*Client, error) {
	if strings.TrimSpace(o.APIKey) == "" || strings.TrimSpace(o.CSEID) == "" {
		return nil, ErrNotConfigured
	}
	opts := []option.ClientOption{option.WithAPIKey(o.APIKey)}
	if o.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(o.UserAgent))
	}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("customsearch: %w", err)
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{svc: svc, cx: o.CSEID, log: log}, nil
}

// Page busca a página de query que começa em start (0 = primeira).
func (c *Client) Page(ctx context.Context, query string, start int64) (Page, error) {
	call := c.svc.Cse.List().Cx(c.cx).Q(query)
	if start > 0 {
		call = call.Start(start)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return Page{}, fmt.Errorf("customsearch: %w", err)
	}
	c.log.Debugw("search page", "query", query, "start", start, "items", len(res.Items))
	return pageFrom(res)
}

func pageFrom(res *customsearch.Search) (Page, error) {
	if res == nil || len(res.Items) == 0 {
		return Page{}, ErrNoResults
	}
	var p Page
	for _, it := range res.Items {
		if it == nil || it.Link == "" {
			continue
		}
		p.Links = append(p.Links, Link{Title: it.Title, URL: it.Link})
	}
	if q := res.Queries; q != nil {
		if len(q.PreviousPage) > 0 && q.PreviousPage[0] != nil {
			p.Prev = q.PreviousPage[0].StartIndex
		}
		if len(q.NextPage) > 0 && q.NextPage[0] != nil {
			p.Next = q.NextPage[0].StartIndex
		}
	}
	return p, nil
}
