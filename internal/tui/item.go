package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/idilsaglam/tada/internal/model"
)

// listItem adapts a store item to bubbles/list.Item
type listItem struct {
	model.Item
	Removing bool
}

func (i listItem) FilterValue() string { return i.Text }

// itemDelegate renders one item per line: cursor, box, text, age. Ages
// are measured against now, the store clock.
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	box := mutedStyle.Render(boxUnchecked)
	text := it.Text
	if it.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	if it.Removing {
		text = removingStyle.Render(it.Text)
	}

	age := mutedStyle.Render(humanize.RelTime(it.CreatedAt, d.now(), "ago", "from now"))

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s  %s", prefix, box, text, age)
}
