package model

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter selects which items a view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// SortKey selects the order a view shows items in.
type SortKey string

const (
	SortCreated      SortKey = "created"
	SortAlphabetical SortKey = "alphabetical"
)

// Filters lists the filter modes in the order renderers cycle through them.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

// SortKeys lists the sort keys in the order renderers cycle through them.
var SortKeys = []SortKey{SortCreated, SortAlphabetical}

// ParseFilter accepts a filter name, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q (want all, active or completed)", s)
}

// ParseSortKey accepts a sort key name, case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortCreated, "":
		return SortCreated, nil
	case SortAlphabetical, "alpha":
		return SortAlphabetical, nil
	}
	return SortCreated, fmt.Errorf("unknown sort key %q (want created or alphabetical)", s)
}

// Next returns the filter after f, wrapping around.
func (f Filter) Next() Filter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

// Next returns the sort key after k, wrapping around.
func (k SortKey) Next() SortKey {
	for i, v := range SortKeys {
		if v == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortCreated
}

// ActiveCount counts items that are not completed.
func ActiveCount(items []Item) int {
	n := 0
	for _, it := range items {
		if !it.Completed {
			n++
		}
	}
	return n
}

// CompletedCount counts completed items.
func CompletedCount(items []Item) int {
	return len(items) - ActiveCount(items)
}

// FilterItems returns the items matching mode, preserving order.
// Unknown modes behave like FilterAll.
func FilterItems(items []Item, mode Filter) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		switch mode {
		case FilterActive:
			if it.Completed {
				continue
			}
		case FilterCompleted:
			if !it.Completed {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// SortBy returns a sorted copy of items; the input is left untouched.
//
// SortCreated orders newest first. SortAlphabetical orders by English
// collation, which keeps case significant (lower case sorts before upper
// case of the same letter) while placing "apple" before "Banana".
func SortBy(items []Item, key SortKey) []Item {
	out := Clone(items)
	if out == nil {
		out = []Item{}
	}
	switch key {
	case SortAlphabetical:
		// Collators keep scratch buffers, so each call gets its own.
		c := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Text, out[j].Text) < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}
