package liststore

import "github.com/idilsaglam/tada/internal/model"

// State is an immutable snapshot of the store handed to subscribers.
type State struct {
	// Items in insertion order, including items pending removal.
	Items []model.Item
	// Pending holds the ids currently animating out.
	Pending map[string]struct{}
	// Version increases by one on every mutation.
	Version uint64
}

// IsPending reports whether id is marked for removal in this snapshot.
func (s State) IsPending(id string) bool {
	_, ok := s.Pending[id]
	return ok
}

// ActiveCount counts items that are not completed.
func (s State) ActiveCount() int { return model.ActiveCount(s.Items) }

// CompletedCount counts completed items.
func (s State) CompletedCount() int { return model.CompletedCount(s.Items) }

// Listener receives a snapshot after every mutation.
type Listener func(State)
