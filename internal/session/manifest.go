package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Style describes one registered voice: an id, a display name, and the weight
// file per model kind.
type Style struct {
	ID     StyleID              `json:"id"`
	Name   string               `json:"name"`
	Models map[ModelKind]string `json:"models"`
}

// Manifest is the on-disk registry of styles. Relative model paths are
// resolved against the manifest's directory.
type Manifest struct {
	styles []Style
	byID   map[StyleID]Style
}

type manifestDoc struct {
	Styles []Style `json:"styles"`
}

// LoadManifest reads and validates a styles manifest JSON file.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, errors.New("manifest path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles manifest: %w", err)
	}

	var doc manifestDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode styles manifest: %w", err)
	}

	if len(doc.Styles) == 0 {
		return nil, errors.New("styles manifest has no styles")
	}

	baseDir := filepath.Dir(path)
	m := &Manifest{
		styles: make([]Style, 0, len(doc.Styles)),
		byID:   make(map[StyleID]Style, len(doc.Styles)),
	}

	for _, s := range doc.Styles {
		if _, exists := m.byID[s.ID]; exists {
			return nil, fmt.Errorf("duplicate style id %d in manifest", s.ID)
		}

		resolved := make(map[ModelKind]string, len(Kinds()))
		for _, kind := range Kinds() {
			modelPath := s.Models[kind]
			if modelPath == "" {
				return nil, fmt.Errorf("style %d has no %s model", s.ID, kind)
			}
			if !filepath.IsAbs(modelPath) {
				modelPath = filepath.Join(baseDir, modelPath)
			}
			resolved[kind] = filepath.Clean(modelPath)
		}

		s.Models = resolved
		m.styles = append(m.styles, s)
		m.byID[s.ID] = s

		slog.Info(
			"registered style",
			"id", s.ID,
			"name", s.Name,
			"duration", resolved[KindDuration],
			"intonation", resolved[KindIntonation],
			"decode", resolved[KindDecode],
		)
	}

	sort.Slice(m.styles, func(i, j int) bool { return m.styles[i].ID < m.styles[j].ID })

	return m, nil
}

// NewManifest builds a manifest from in-memory styles. Paths are used as
// given. Intended for tests and embedded setups.
func NewManifest(styles []Style) (*Manifest, error) {
	m := &Manifest{
		styles: make([]Style, 0, len(styles)),
		byID:   make(map[StyleID]Style, len(styles)),
	}
	for _, s := range styles {
		if _, exists := m.byID[s.ID]; exists {
			return nil, fmt.Errorf("duplicate style id %d", s.ID)
		}
		for _, kind := range Kinds() {
			if s.Models[kind] == "" {
				return nil, fmt.Errorf("style %d has no %s model", s.ID, kind)
			}
		}
		m.styles = append(m.styles, s)
		m.byID[s.ID] = s
	}
	sort.Slice(m.styles, func(i, j int) bool { return m.styles[i].ID < m.styles[j].ID })
	return m, nil
}

// Styles returns the registered styles in id order.
func (m *Manifest) Styles() []Style {
	return append([]Style(nil), m.styles...)
}

// ModelPath resolves the weight file for a (style, kind) pair.
func (m *Manifest) ModelPath(style StyleID, kind ModelKind) (string, error) {
	s, ok := m.byID[style]
	if !ok {
		return "", &UnknownStyleError{Style: style}
	}
	path, ok := s.Models[kind]
	if !ok || path == "" {
		return "", &UnknownStyleError{Style: style}
	}
	return path, nil
}
