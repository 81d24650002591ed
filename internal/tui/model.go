// Package tui is the interactive Bubble Tea front end of the list store.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/liststore"
)

// Options tune the initial view.
type Options struct {
	Filter model.Filter
	Sort   model.SortKey
	Logger *zap.Logger
}

// stateMsg carries a store snapshot into the Bubble Tea loop.
type stateMsg liststore.State

type keyMap struct {
	add, toggle, remove, clear, filter, sort key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear completed")),
		filter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.add, k.toggle, k.remove, k.clear, k.filter, k.sort}
}

type modelTUI struct {
	store  *liststore.Store
	states <-chan liststore.State
	logger *zap.Logger

	list  list.Model
	keys  keyMap
	state liststore.State

	filter model.Filter
	sort   model.SortKey

	// Inline add
	adding bool            // true when inline add is active
	ti     textinput.Model // text input for new items
	addErr string          // last add validation error (shown briefly)

	// selectID, when set, moves the cursor to that item on the next refresh.
	selectID string

	width, height int
}

func newModel(s *liststore.Store, states <-chan liststore.State, opt Options) modelTUI {
	l := list.New(nil, itemDelegate{now: s.Now}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.SetStatusBarItemName("item", "items")

	keys := newKeyMap()
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Add a new task..."
	ti.CharLimit = 200

	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	filter := opt.Filter
	if filter == "" {
		filter = model.FilterAll
	}
	sortKey := opt.Sort
	if sortKey == "" {
		sortKey = model.SortCreated
	}

	m := modelTUI{
		store:  s,
		states: states,
		logger: logger,
		list:   l,
		keys:   keys,
		filter: filter,
		sort:   sortKey,
		ti:     ti,
		width:  80,
		height: 24,
	}
	m.resize()
	m.apply(s.State())
	return m
}

// Run starts the Bubble Tea program on s and blocks until the user quits.
// The caller owns s and closes it afterwards.
func Run(ctx context.Context, s *liststore.Store, opt Options) error {
	states := make(chan liststore.State, 1)
	cancel := s.Subscribe(func(st liststore.State) { offer(states, st) })
	defer cancel()

	m := newModel(s, states, opt)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// offer replaces whatever snapshot is waiting with st, so the UI always
// catches up to the newest state without blocking the store.
func offer(ch chan liststore.State, st liststore.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func waitForState(ch <-chan liststore.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

// Init and Update and View implement Bubble Tea's Model on modelTUI
func (m modelTUI) Init() tea.Cmd { return waitForState(m.states) }

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.apply(liststore.State(msg))
		return m, waitForState(m.states)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	}

	if m.adding {
		return m.updateAdding(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case msg.String() == "q" || msg.String() == "esc":
			return m, tea.Quit
		case key.Matches(msg, m.keys.add):
			m.adding = true
			m.addErr = ""
			m.ti.SetValue("")
			m.resize()
			return m, m.ti.Focus()
		case key.Matches(msg, m.keys.toggle):
			if it, ok := m.selected(); ok {
				m.store.Toggle(it.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.remove):
			if it, ok := m.selected(); ok {
				m.store.Delete(it.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.clear):
			if n := m.store.ClearCompleted(); n > 0 {
				m.logger.Debug("cleared completed", zap.Int("count", n))
			}
			return m, nil
		case key.Matches(msg, m.keys.filter):
			m.filter = m.filter.Next()
			m.apply(m.state)
			return m, nil
		case key.Matches(msg, m.keys.sort):
			m.sort = m.sort.Next()
			m.apply(m.state)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m modelTUI) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if x, ok := msg.(tea.KeyMsg); ok {
		switch x.String() {
		case "enter":
			it, ok := m.store.Add(m.ti.Value())
			if !ok {
				m.addErr = "Title cannot be empty"
				return m, nil
			}
			m.selectID = it.ID
			m.apply(m.store.State())
			m.stopAdding()
			return m, nil
		case "esc":
			m.stopAdding()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *modelTUI) stopAdding() {
	m.adding = false
	m.addErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

// apply projects st through the current filter and sort into the list.
func (m *modelTUI) apply(st liststore.State) {
	m.state = st
	keepID := m.selectID
	if keepID == "" {
		if it, ok := m.selected(); ok {
			keepID = it.ID
		}
	}
	m.selectID = ""

	projected := model.SortBy(model.FilterItems(st.Items, m.filter), m.sort)
	items := make([]list.Item, 0, len(projected))
	cursor := -1
	for i, it := range projected {
		if it.ID == keepID {
			cursor = i
		}
		items = append(items, listItem{Item: it, Removing: st.IsPending(it.ID)})
	}
	m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	m.list.Title = m.title()
}

func (m modelTUI) selected() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

func (m modelTUI) title() string {
	st := m.state
	d, p := st.CompletedCount(), st.ActiveCount()
	t := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), d,
		pendingStyle.Render("•"), p,
		accentStyle.Render("Total"), len(st.Items),
	)
	if m.filter != model.FilterAll || m.sort != model.SortCreated {
		t += mutedStyle.Render(fmt.Sprintf("   [%s · %s]", m.filter, m.sort))
	}
	return t
}

func (m *modelTUI) resize() {
	listHeight := m.height - 6
	if m.adding {
		listHeight -= 4
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)
}

func (m modelTUI) footer() string {
	left := m.state.ActiveCount()
	noun := "items"
	if left == 1 {
		noun = "item"
	}
	out := mutedStyle.Render(fmt.Sprintf("%d %s left", left, noun))
	if m.state.CompletedCount() > 0 {
		out += "   " + accentStyle.Render("c: clear completed")
	}
	return out
}

func (m modelTUI) View() string {
	var b strings.Builder
	if len(m.state.Items) == 0 {
		b.WriteString(m.title() + "\n\n")
		b.WriteString(mutedStyle.Render("No tasks yet. Add one above!") + "\n")
	} else {
		b.WriteString(m.list.View() + "\n")
	}
	b.WriteString(m.footer())

	if m.adding {
		bar := panelString
		title := "Add new item"
		if m.addErr != "" {
			title += " — " + errorStyle.Render(m.addErr)
		}
		b.WriteString("\n" + bar(title+"\n"+m.ti.View()))
	}
	return panelString(b.String())
}
