package memory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is one knowledge passage in a YAML knowledge file:
//
//	- source: faq
//	  tenant: acme        # optional, "" is global
//	  content: "Horario de atención: lunes a viernes de 9 a 18."
//	  metadata:
//	    topic: hours
type Document struct {
	Tenant   string         `yaml:"tenant"`
	Source   string         `yaml:"source"`
	Content  string         `yaml:"content"`
	Metadata map[string]any `yaml:"metadata"`
}

// LoadFile reads a knowledge file into m and returns the number of passages
// stored.
func (m *InMemoryStore) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open knowledge file: %w", err)
	}
	defer f.Close()

	return m.LoadYAML(f)
}

// LoadYAML decodes a list of Documents from r and stores each one. Nothing is
// stored when any document is invalid.
func (m *InMemoryStore) LoadYAML(r io.Reader) (int, error) {
	var docs []Document
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("parse knowledge: %w", err)
	}

	for i, d := range docs {
		if d.Source == "" {
			return 0, fmt.Errorf("parse knowledge: document #%d has no source", i)
		}
		if d.Content == "" {
			return 0, fmt.Errorf("parse knowledge: document #%d has no content", i)
		}
	}

	for _, d := range docs {
		m.Store(d.Tenant, d.Source, d.Content, d.Metadata)
	}

	return len(docs), nil
}
