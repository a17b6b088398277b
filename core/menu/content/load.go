package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDefinition []byte

// ParseDefinition decodes a YAML registry definition. Unknown keys are rejected.
func ParseDefinition(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("failed to parse content definition: %w", err)
	}
	return def, nil
}

// ReadDefinition reads a YAML registry definition from disk.
func ReadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read content file: %w", err)
	}
	return ParseDefinition(data)
}

// DefaultDefinition returns the built-in project menu.
func DefaultDefinition() (Definition, error) {
	return ParseDefinition(defaultDefinition)
}

// Load builds a registry from path, or from the built-in definition when path
// is empty. A non-empty backToken overrides the definition's back token.
func Load(path, backToken string) (*Registry, error) {
	var (
		def Definition
		err error
	)
	if path == "" {
		def, err = DefaultDefinition()
	} else {
		def, err = ReadDefinition(path)
	}
	if err != nil {
		return nil, err
	}
	if backToken != "" {
		def.BackToken = backToken
	}
	return New(def)
}
