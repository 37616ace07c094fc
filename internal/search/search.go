package search

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const pickerTitle = "Search Results"

// Pager busca uma página de resultados.
type Pager interface {
	Page(ctx context.Context, query string, start int64) (Page, error)
}

type Searcher struct {
	pager  Pager
	picker Picker
	out    io.Writer
	log    *zap.SugaredLogger
}

func NewSearcher(pager Pager, picker Picker, out io.Writer, log *zap.SugaredLogger) *Searcher {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Searcher{pager: pager, picker: picker, out: out, log: log}
}

// Search devolve a URL escolhida, ou "" se o usuário cancelou.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	var chosen string
	err := s.Run(ctx, query, func(url string) bool {
		chosen = url
		return false
	})
	return chosen, err
}

// Run mostra os resultados de query e chama handle para cada link escolhido.
// Depois de handle o seletor volta à mesma página, com o link destacado, até
// o usuário cancelar ou handle devolver false.
func (s *Searcher) Run(ctx context.Context, query string, handle func(url string) bool) error {
	fmt.Fprintf(s.out, "Query: %s\n", query)
	var start int64
	for {
		page, err := s.pager.Page(ctx, query, start)
		if err != nil {
			return err
		}
		selected := ""
	pick:
		for {
			choice, err := s.picker.Pick(ctx, pickerTitle, page, selected)
			if err != nil {
				return err
			}
			switch choice.Kind {
			case ChoiceCancel:
				return nil
			case ChoicePrev:
				start = page.Prev
				break pick
			case ChoiceNext:
				start = page.Next
				break pick
			case ChoiceLink:
				s.log.Debugw("search result chosen", "url", choice.URL)
				selected = choice.URL
				if !handle(choice.URL) {
					return nil
				}
			}
		}
	}
}
