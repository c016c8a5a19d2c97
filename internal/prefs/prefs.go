// Package prefs persists local UI preferences. Currently a single key: the
// theme choice, read at startup and written on toggle.
package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"revot.app/chat/internal/model"
)

type prefsFile struct {
	Theme model.Theme `json:"theme"`
}

// Store reads and writes the preferences file.
type Store struct {
	path string

	mu    sync.Mutex
	theme model.Theme
}

// Open loads preferences from path, falling back to the dark theme when the
// file is missing or unreadable. A broken prefs file is never fatal.
func Open(path string) *Store {
	s := &Store{
		path:  path,
		theme: model.ThemeDark,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}

	var pf prefsFile
	if err := json.Unmarshal(data, &pf); err != nil || !pf.Theme.Valid() {
		return s
	}

	s.theme = pf.Theme
	return s
}

// Theme returns the current theme choice.
func (s *Store) Theme() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

// SetTheme persists a theme choice.
func (s *Store) SetTheme(theme model.Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unknown theme %q", theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(prefsFile{Theme: theme}); err != nil {
		return err
	}
	s.theme = theme
	return nil
}

// ToggleTheme flips between dark and light and persists the result.
func (s *Store) ToggleTheme() (model.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.theme.Toggle()
	if err := s.write(prefsFile{Theme: next}); err != nil {
		return s.theme, err
	}
	s.theme = next
	return next, nil
}

func (s *Store) write(pf prefsFile) error {
	data, err := json.Marshal(pf)
	if err != nil {
		return fmt.Errorf("encoding prefs: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing prefs: %w", err)
	}
	return nil
}
