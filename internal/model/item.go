package model

import "time"

// Item is the domain model for a todo entry.
// Items are owned by the list store; everything outside it works on copies.
type Item struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// dateLayout mirrors the en-US "short month, numeric day, 2-digit time" format.
const dateLayout = "Jan 2, 03:04 PM"

// FormatDate renders t the way the list shows creation times.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// Clone returns a copy of items that shares no backing array with the input.
func Clone(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
