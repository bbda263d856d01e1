package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk schema format.
type File struct {
	ShadowSuffix string  `yaml:"shadow_suffix,omitempty"`
	Tables       []Table `yaml:"tables"`
}

// LoadFile reads a YAML schema file and returns a sealed registry. A shadow
// suffix declared in the file takes precedence over opts.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Load(bytes.NewReader(data), opts...)
}

// Load parses a YAML schema document and returns a sealed registry.
// Unknown fields are rejected so typos surface at startup.
func Load(r io.Reader, opts ...Option) (*Registry, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return f.Registry(opts...)
}

// Registry builds a sealed registry from the file contents.
func (f File) Registry(opts ...Option) (*Registry, error) {
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("schema declares no tables")
	}
	reg := NewRegistry(append(opts, WithShadowSuffix(f.ShadowSuffix))...)
	for _, t := range f.Tables {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}
