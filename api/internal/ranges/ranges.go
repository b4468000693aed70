// Package ranges supplies default normal ranges per test, used by the
// interpretation filter only when the report carries no ranges of its own.
package ranges

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps a test name to a free-text description of its normal ranges.
type Table struct {
	Tests map[string]string `yaml:"tests"`
}

// Load reads a YAML ranges file. A missing file yields an empty table,
// not an error: defaults are optional.
func Load(path string) (*Table, error) {
	if path == "" {
		return &Table{Tests: map[string]string{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Table{Tests: map[string]string{}}, nil
		}
		return nil, err
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.Tests == nil {
		t.Tests = map[string]string{}
	}
	return &t, nil
}

// Lookup returns the default ranges text for a test name, empty if unknown.
// Matching is exact-string, same as the digest cache.
func (t *Table) Lookup(testName string) string {
	if t == nil {
		return ""
	}
	return t.Tests[testName]
}
