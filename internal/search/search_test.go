package search

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/customsearch/v1"
)

func TestPageFrom(t *testing.T) {
	res := &customsearch.Search{
		Items: []*customsearch.Result{
			{Title: "Go", Link: "https://go.dev"},
			nil,
			{Title: "no link"},
			{Title: "Pkg", Link: "https://pkg.go.dev"},
		},
		Queries: &customsearch.SearchQueries{
			NextPage:     []*customsearch.SearchQueriesNextPage{{StartIndex: 21}},
			PreviousPage: []*customsearch.SearchQueriesPreviousPage{{StartIndex: 1}},
		},
	}
	p, err := pageFrom(res)
	require.NoError(t, err)
	assert.Equal(t, Page{
		Links: []Link{{Title: "Go", URL: "https://go.dev"}, {Title: "Pkg", URL: "https://pkg.go.dev"}},
		Prev:  1,
		Next:  21,
	}, p)

	_, err = pageFrom(&customsearch.Search{})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestClientPage(t *testing.T) {
	var gotQuery, gotStart, gotCX string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotStart = r.URL.Query().Get("start")
		gotCX = r.URL.Query().Get("cx")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"title":"A","link":"https://a.example"}],"queries":{"nextPage":[{"startIndex":11}]}}`))
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), ClientOptions{APIKey: "k", CSEID: "cx1", Endpoint: srv.URL + "/"})
	require.NoError(t, err)

	p, err := c.Page(context.Background(), "golang", 11)
	require.NoError(t, err)
	assert.Equal(t, "golang", gotQuery)
	assert.Equal(t, "11", gotStart)
	assert.Equal(t, "cx1", gotCX)
	assert.Equal(t, []Link{{Title: "A", URL: "https://a.example"}}, p.Links)
	assert.Equal(t, int64(11), p.Next)
	assert.Zero(t, p.Prev)
}

func TestNewClientNeedsCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), ClientOptions{APIKey: "k"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type stubPager struct {
	pages  map[int64]Page
	starts []int64
}

func (p *stubPager) Page(_ context.Context, _ string, start int64) (Page, error) {
	p.starts = append(p.starts, start)
	page, ok := p.pages[start]
	if !ok {
		return Page{}, ErrNoResults
	}
	return page, nil
}

type scriptedPicker struct {
	choices  []Choice
	selected []string
}

func (p *scriptedPicker) Pick(_ context.Context, _ string, _ Page, selected string) (Choice, error) {
	p.selected = append(p.selected, selected)
	if len(p.choices) == 0 {
		return Choice{Kind: ChoiceCancel}, nil
	}
	c := p.choices[0]
	p.choices = p.choices[1:]
	return c, nil
}

func twoPages() *stubPager {
	return &stubPager{pages: map[int64]Page{
		0:  {Links: []Link{{Title: "one", URL: "https://one"}}, Next: 11},
		11: {Links: []Link{{Title: "two", URL: "https://two"}}, Prev: 1},
		1:  {Links: []Link{{Title: "one", URL: "https://one"}}, Next: 11},
	}}
}

func TestRunPagesAndHandlesLinks(t *testing.T) {
	pager := twoPages()
	picker := &scriptedPicker{choices: []Choice{
		{Kind: ChoiceNext},
		{Kind: ChoiceLink, URL: "https://two"},
		{Kind: ChoicePrev},
		{Kind: ChoiceLink, URL: "https://one"},
	}}
	var out bytes.Buffer
	s := NewSearcher(pager, picker, &out, nil)

	var handled []string
	require.NoError(t, s.Run(context.Background(), "q", func(url string) bool {
		handled = append(handled, url)
		return true
	}))

	assert.Equal(t, []string{"https://two", "https://one"}, handled)
	assert.Equal(t, []int64{0, 11, 1}, pager.starts)
	// depois de tratar um link o seletor volta com ele destacado
	assert.Equal(t, []string{"", "", "https://two", "", "https://one"}, picker.selected)
	assert.Equal(t, "Query: q\n", out.String())
}

func TestSearchReturnsFirstChoice(t *testing.T) {
	picker := &scriptedPicker{choices: []Choice{{Kind: ChoiceLink, URL: "https://one"}}}
	s := NewSearcher(twoPages(), picker, nil, nil)
	url, err := s.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "https://one", url)
	assert.Len(t, picker.selected, 1)

	url, err = NewSearcher(twoPages(), &scriptedPicker{}, nil, nil).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestRunPropagatesPagerError(t *testing.T) {
	s := NewSearcher(&stubPager{}, &scriptedPicker{}, nil, nil)
	err := s.Run(context.Background(), "q", func(string) bool { return true })
	assert.True(t, errors.Is(err, ErrNoResults))
}

func update(t *testing.T, m pickerModel, msg tea.Msg) pickerModel {
	t.Helper()
	next, _ := m.Update(msg)
	pm, ok := next.(pickerModel)
	require.True(t, ok)
	return pm
}

func TestPickerModel(t *testing.T) {
	page := Page{
		Links: []Link{{Title: "A", URL: "https://a"}, {Title: "B", URL: "https://b"}},
		Prev:  1,
		Next:  21,
	}

	m := update(t, newPickerModel("t", page, ""), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, Choice{Kind: ChoiceLink, URL: "https://a"}, m.choice)

	m = newPickerModel("t", page, "")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, Choice{Kind: ChoiceLink, URL: "https://b"}, m.choice)

	m = update(t, newPickerModel("t", page, "https://b"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "https://b", m.choice.URL)

	m = update(t, newPickerModel("t", page, ""), tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, ChoiceNext, m.choice.Kind)
	m = update(t, newPickerModel("t", page, ""), tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, ChoicePrev, m.choice.Kind)
	m = update(t, newPickerModel("t", page, ""), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ChoiceCancel, m.choice.Kind)
}

func TestPickerItemsIncludePaging(t *testing.T) {
	items := itemsFor(Page{Links: []Link{{Title: "A", URL: "https://a"}}, Next: 11})
	require.Len(t, items, 2)
	assert.Equal(t, "Next", items[1].(item).Title())
	assert.Len(t, itemsFor(Page{Links: []Link{{Title: "A", URL: "https://a"}}}), 1)
}
