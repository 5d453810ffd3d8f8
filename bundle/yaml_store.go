package bundle

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a bundles file:
//
//	default_language: es
//	agents:
//	  - name: info
//	    instructions:
//	      es: "Eres el asistente de información..."
//	    messages:
//	      welcome:
//	        es: "¡Bienvenido!"
type File struct {
	DefaultLanguage string       `yaml:"default_language"`
	Agents          []Definition `yaml:"agents"`
}

// NewYAMLStore reads a bundles file and returns an InMemoryStore holding its
// definitions. Environment variables in the file are expanded.
func NewYAMLStore(path string) (*InMemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundles file: %w", err)
	}
	defer f.Close()

	return DecodeYAML(f)
}

// DecodeYAML parses a bundles document from r.
func DecodeYAML(r io.Reader) (*InMemoryStore, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read bundles: %w", err)
	}

	var file File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &file); err != nil {
		return nil, fmt.Errorf("parse bundles: %w", err)
	}

	seen := make(map[defKey]bool, len(file.Agents))
	for i, d := range file.Agents {
		if d.Agent == "" {
			return nil, fmt.Errorf("parse bundles: agent #%d has no name", i)
		}
		k := defKey{d.Agent, d.Tenant}
		if seen[k] {
			return nil, fmt.Errorf("parse bundles: duplicate agent %q for tenant %q", d.Agent, d.Tenant)
		}
		seen[k] = true
	}

	return NewInMemoryStore(file.DefaultLanguage, file.Agents...), nil
}
