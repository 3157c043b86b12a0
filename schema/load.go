package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML policy document, applies defaults for omitted fields
// and normalizes it. The returned policy is ready for use by a guard.
func Parse(data []byte) (*SecurityPolicy, error) {
	policy := NewSecurityPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("decode security policy: %w", err)
	}
	if err := policy.Normalize(); err != nil {
		return nil, fmt.Errorf("normalize security policy: %w", err)
	}
	return &policy, nil
}

// Load reads and parses a YAML policy document from r.
func Load(r io.Reader) (*SecurityPolicy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read security policy: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and parses a YAML policy document from disk.
func LoadFile(path string) (*SecurityPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read security policy %s: %w", path, err)
	}
	return Parse(data)
}
