// Package storage reads and writes character sheets as JSON files.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/nfrund/tavern/internal/domain"
)

// ErrEmptyRoster is returned when a roster file holds no characters.
var ErrEmptyRoster = errors.New("roster file contains no characters")

// RosterWriter persists characters, keyed by owning uid.
// Both *database.CharacterStore and *memstore.Store satisfy it.
type RosterWriter interface {
	Upsert(ctx context.Context, c domain.Character) (*domain.Character, error)
}

// rosterFile accepts either a bare array or {"characters": [...]}.
type rosterFile struct {
	Characters []domain.Character `json:"characters"`
}

// RosterLoader reads roster files from a filesystem.
type RosterLoader struct {
	fs afero.Fs
}

// NewRosterLoader creates a loader on fs. Use afero.NewOsFs() for the real disk.
func NewRosterLoader(fs afero.Fs) *RosterLoader {
	return &RosterLoader{fs: fs}
}

// Load parses and validates every character in path.
func (l *RosterLoader) Load(path string) ([]domain.Character, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var chars []domain.Character
	if err := json.Unmarshal(data, &chars); err != nil {
		var wrapped rosterFile
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse roster %s: %w", path, err)
		}
		chars = wrapped.Characters
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRoster, path)
	}

	seen := make(map[string]bool, len(chars))
	for i := range chars {
		if err := chars[i].Validate(); err != nil {
			return nil, fmt.Errorf("character %d (%q): %w", i, chars[i].Name, err)
		}
		if seen[chars[i].UID] {
			return nil, fmt.Errorf("character %d (%q): duplicate uid %s", i, chars[i].Name, chars[i].UID)
		}
		seen[chars[i].UID] = true
	}
	return chars, nil
}

// Save writes roster to path as an indented JSON array.
func (l *RosterLoader) Save(path string, roster domain.Roster) error {
	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(roster, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(l.fs, path, append(data, '\n'), os.FileMode(0o644))
}

// Import loads path and upserts every character into w. It returns the
// stored characters.
func (l *RosterLoader) Import(ctx context.Context, w RosterWriter, path string) ([]domain.Character, error) {
	chars, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	stored := make([]domain.Character, 0, len(chars))
	for _, c := range chars {
		saved, err := w.Upsert(ctx, c)
		if err != nil {
			return stored, fmt.Errorf("store %q: %w", c.Name, err)
		}
		stored = append(stored, *saved)
	}
	return stored, nil
}
