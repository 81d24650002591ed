// Package fixture reads seed lists and writes JSON snapshots.
// Seeds are applied through store commands; nothing is ever written back.
package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/liststore"
)

// Seed is one entry of a seed file.
type Seed struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// ErrNoSeedFile is returned by Load when path does not exist.
var ErrNoSeedFile = errors.New("seed file not found")

// Load reads a JSON array of seeds from path.
func Load(path string) ([]Seed, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSeedFile, path)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return Decode(b)
}

// Decode parses a JSON array of seeds.
func Decode(b []byte) ([]Seed, error) {
	var seeds []Seed
	if err := json.Unmarshal(b, &seeds); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return seeds, nil
}

// Apply adds every seed to s, toggling the completed ones. Seeds with
// blank text are skipped the same way Add skips them. It returns how many
// items were added.
func Apply(s *liststore.Store, seeds []Seed) int {
	n := 0
	for _, seed := range seeds {
		it, ok := s.Add(seed.Text)
		if !ok {
			continue
		}
		if seed.Completed {
			s.Toggle(it.ID)
		}
		n++
	}
	return n
}

// Snapshot is the JSON shape of a rendered list.
type Snapshot struct {
	Items     []model.Item `json:"items"`
	Pending   []string     `json:"pending"`
	Active    int          `json:"active"`
	Completed int          `json:"completed"`
	Version   uint64       `json:"version"`
}

// NewSnapshot converts a store state into its JSON shape. items is the
// projection to print; counts always cover the whole state.
func NewSnapshot(st liststore.State, items []model.Item) Snapshot {
	pending := make([]string, 0, len(st.Pending))
	for id := range st.Pending {
		pending = append(pending, id)
	}
	sort.Strings(pending)
	if items == nil {
		items = []model.Item{}
	}
	return Snapshot{
		Items:     items,
		Pending:   pending,
		Active:    st.ActiveCount(),
		Completed: st.CompletedCount(),
		Version:   st.Version,
	}
}

// Write encodes snap as indented JSON.
func Write(w io.Writer, snap Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
