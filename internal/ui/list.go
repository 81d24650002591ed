package ui

import (
	"fmt"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/mattn/go-runewidth"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/liststore"
)

const maxTextWidth = 80

// ListOptions picks the projection a list panel shows.
type ListOptions struct {
	Filter model.Filter
	Sort   model.SortKey
	Group  bool // split into Pending / Done sections
}

// Project applies the filter, then the sort, to a state's items.
func Project(st liststore.State, opt ListOptions) []model.Item {
	return model.SortBy(model.FilterItems(st.Items, opt.Filter), opt.Sort)
}

// ListLines renders a whole list panel body: header, progress, rows and
// footer. Row numbers are 1-based positions in insertion order, so they
// stay valid as command arguments whatever the filter or sort.
func ListLines(st liststore.State, opt ListOptions) []string {
	t := Current()
	d, p := st.CompletedCount(), st.ActiveCount()
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Todos"),
		C(t.Success, t.SymDone), d,
		C(t.Pending, t.SymUnchecked), p,
		C(t.Accent, "Total"), len(st.Items),
	)

	lines := []string{header, C(t.Muted, ProgressBar(d, d+p, 28))}
	if opt.Filter != model.FilterAll && opt.Filter != "" || opt.Sort == model.SortAlphabetical {
		lines = append(lines, C(t.Muted, fmt.Sprintf("filter: %s  sort: %s", orAll(opt.Filter), orCreated(opt.Sort))))
	}
	lines = append(lines, "")

	positions := make(map[string]int, len(st.Items))
	for i, it := range st.Items {
		positions[it.ID] = i + 1
	}
	items := Project(st, opt)

	switch {
	case len(st.Items) == 0:
		lines = append(lines, C(t.Muted, "No tasks yet. Add one above!"))
	case opt.Group:
		lines = append(lines, groupLines(st, items, positions)...)
	default:
		lines = append(lines, rowLines(st, items, positions)...)
	}

	lines = append(lines, "", footer(st))
	return lines
}

// footer mirrors the list footer: items left, plus the clear hint once
// something is completed.
func footer(st liststore.State) string {
	t := Current()
	left := st.ActiveCount()
	noun := "items"
	if left == 1 {
		noun = "item"
	}
	out := C(t.Muted, fmt.Sprintf("%d %s left", left, noun))
	if st.CompletedCount() > 0 {
		out += "  " + C(t.Accent, "Clear completed: `clear`")
	}
	return out
}

func rowLines(st liststore.State, items []model.Item, positions map[string]int) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	table := uitable.New()
	// Leave room for color escapes around truncated text.
	table.MaxColWidth = maxTextWidth + 16
	table.Separator = " "
	for _, it := range items {
		box, boxColor := t.BoxUnchecked, t.Muted
		if it.Completed {
			box, boxColor = t.BoxChecked, t.Success
		}
		text := truncate(it.Text)
		if st.IsPending(it.ID) {
			text = C(t.Removing, text)
		}
		table.AddRow(
			C(t.Muted, fmt.Sprintf("%2d.", positions[it.ID])),
			C(boxColor, box),
			text,
			C(t.Muted, model.FormatDate(it.CreatedAt)),
		)
	}
	return strings.Split(table.String(), "\n")
}

func groupLines(st liststore.State, items []model.Item, positions map[string]int) []string {
	t := Current()
	var pend, done []model.Item
	for _, it := range items {
		if it.Completed {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	var lines []string
	lines = append(lines, C(t.Accent, "Pending"))
	if len(pend) == 0 {
		lines = append(lines, C(t.Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(st, pend, positions)...)
	}
	lines = append(lines, "")
	lines = append(lines, C(t.Accent, "Done"))
	if len(done) == 0 {
		lines = append(lines, C(t.Muted, "(none)"))
	} else {
		lines = append(lines, rowLines(st, done, positions)...)
	}
	return lines
}

func truncate(s string) string {
	return runewidth.Truncate(s, maxTextWidth, "...")
}

func orAll(f model.Filter) model.Filter {
	if f == "" {
		return model.FilterAll
	}
	return f
}

func orCreated(k model.SortKey) model.SortKey {
	if k == "" {
		return model.SortCreated
	}
	return k
}
