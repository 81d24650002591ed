package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, time.March, 4, 9, 30, 0, 0, time.UTC)

func fixture() []Item {
	return []Item{
		{ID: "1", Text: "Walk dog", CreatedAt: base},
		{ID: "2", Text: "buy milk", Completed: true, CreatedAt: base.Add(time.Minute)},
		{ID: "3", Text: "Answer mail", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "4", Text: "Buy milk", Completed: true, CreatedAt: base.Add(3 * time.Minute)},
	}
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestCounts(t *testing.T) {
	items := fixture()
	assert.Equal(t, 2, ActiveCount(items))
	assert.Equal(t, 2, CompletedCount(items))
	assert.Equal(t, 0, ActiveCount(nil))
	assert.Equal(t, 0, CompletedCount(nil))
}

func TestFilterItemsPreservesOrder(t *testing.T) {
	items := fixture()
	cases := []struct {
		mode Filter
		want []string
	}{
		{FilterAll, []string{"1", "2", "3", "4"}},
		{FilterActive, []string{"1", "3"}},
		{FilterCompleted, []string{"2", "4"}},
		{Filter("bogus"), []string{"1", "2", "3", "4"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ids(FilterItems(items, tc.mode))); diff != "" {
				t.Fatalf("filter %s mismatch (-want +got):\n%s", tc.mode, diff)
			}
		})
	}
}

func TestSortByCreatedNewestFirst(t *testing.T) {
	items := fixture()
	before := Clone(items)

	got := SortBy(items, SortCreated)
	require.Equal(t, []string{"4", "3", "2", "1"}, ids(got))

	if diff := cmp.Diff(before, items); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestSortByAlphabeticalIsLocaleAware(t *testing.T) {
	got := SortBy(fixture(), SortAlphabetical)
	// Collation interleaves cases instead of putting all capitals first,
	// and lower case wins a tie on the same letters.
	require.Equal(t, []string{"3", "2", "4", "1"}, ids(got))
}

func TestSortByEmpty(t *testing.T) {
	got := SortBy(nil, SortAlphabetical)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestParseAndCycle(t *testing.T) {
	f, err := ParseFilter(" Active ")
	require.NoError(t, err)
	assert.Equal(t, FilterActive, f)
	assert.Equal(t, FilterCompleted, f.Next())
	assert.Equal(t, FilterAll, FilterCompleted.Next())

	_, err = ParseFilter("done")
	assert.Error(t, err)

	k, err := ParseSortKey("alpha")
	require.NoError(t, err)
	assert.Equal(t, SortAlphabetical, k)
	assert.Equal(t, SortCreated, k.Next())

	_, err = ParseSortKey("priority")
	assert.Error(t, err)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Mar 4, 09:30 AM", FormatDate(base))
	assert.Equal(t, "Dec 25, 11:05 PM", FormatDate(time.Date(2024, time.December, 25, 23, 5, 0, 0, time.UTC)))
}
