package search

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ChoiceKind int

const (
	ChoiceCancel ChoiceKind = iota
	ChoiceLink
	ChoicePrev
	ChoiceNext
)

type Choice struct {
	Kind ChoiceKind
	URL  string
}

// Picker mostra uma página e devolve a escolha do usuário. selected é a URL
// que deve vir destacada.
type Picker interface {
	Pick(ctx context.Context, title string, page Page, selected string) (Choice, error)
}

type item struct {
	title, desc string
	choice      Choice
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type pickerModel struct {
	list   list.Model
	page   Page
	choice Choice
}

func itemsFor(page Page) []list.Item {
	items := make([]list.Item, 0, len(page.Links)+2)
	for _, l := range page.Links {
		items = append(items, item{title: l.Title, desc: l.URL, choice: Choice{Kind: ChoiceLink, URL: l.URL}})
	}
	if page.Prev > 0 {
		items = append(items, item{title: "Previous", desc: "previous page", choice: Choice{Kind: ChoicePrev}})
	}
	if page.Next > 0 {
		items = append(items, item{title: "Next", desc: "next page", choice: Choice{Kind: ChoiceNext}})
	}
	return items
}

func newPickerModel(title string, page Page, selected string) pickerModel {
	items := itemsFor(page)
	l := list.New(items, list.NewDefaultDelegate(), 80, 24)
	l.Title = title
	for i, it := range items {
		if it.(item).choice.URL == selected && selected != "" {
			l.Select(i)
			break
		}
	}
	return pickerModel{list: l, page: page}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := m.list.SelectedItem().(item); ok {
				m.choice = it.choice
			}
			return m, tea.Quit
		case "esc", "ctrl+c", "ctrl+d":
			m.choice = Choice{Kind: ChoiceCancel}
			return m, tea.Quit
		case "right":
			if m.page.Next > 0 {
				m.choice = Choice{Kind: ChoiceNext}
				return m, tea.Quit
			}
		case "left":
			if m.page.Prev > 0 {
				m.choice = Choice{Kind: ChoicePrev}
				return m, tea.Quit
			}
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string { return docStyle.Render(m.list.View()) }

// TeaPicker desenha a lista em tela cheia com bubbletea.
type TeaPicker struct{}

func (TeaPicker) Pick(ctx context.Context, title string, page Page, selected string) (Choice, error) {
	p := tea.NewProgram(newPickerModel(title, page, selected), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return Choice{}, fmt.Errorf("picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok {
		return Choice{}, nil
	}
	return m.choice, nil
}
