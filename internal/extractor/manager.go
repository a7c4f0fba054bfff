package extractor

import (
	"os"
	"path/filepath"
	"strings"

	"sqlguard/internal/model"
)

// Manager selects the extractor for a file by its extension.
type Manager struct {
	extractors map[string]model.Extractor
	fallback   model.Extractor
}

// NewManager returns a manager with the default registrations: mapper XML
// for .xml, the source extractor for common program sources, and the source
// extractor as fallback for anything else.
func NewManager() *Manager {
	m := &Manager{
		extractors: make(map[string]model.Extractor),
		fallback:   NewSourceExtractor(),
	}
	m.Register("xml", NewXMLMapperExtractor())
	source := NewSourceExtractor()
	for _, ext := range []string{"go", "java", "kt", "py", "rb", "php", "ts", "js", "cs", "scala", "sql"} {
		m.Register(ext, source)
	}
	return m
}

func (m *Manager) Register(ext string, extr model.Extractor) {
	m.extractors[strings.ToLower(ext)] = extr
}

// Extract reads the file and runs the extractor registered for its
// extension, falling back to the generic source extractor.
func (m *Manager) Extract(filePath string) ([]*model.SqlContext, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if extr, ok := m.extractors[ext]; ok {
		return extr.Extract(filePath, content)
	}
	return m.fallback.Extract(filePath, content)
}
