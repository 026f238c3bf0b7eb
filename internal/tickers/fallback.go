package tickers

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var defaultFallback []byte

// Industry is one named group of codes.
type Industry struct {
	Name  string   `yaml:"name"`
	Codes []string `yaml:"codes"`
}

// FallbackList is the static industry to codes table.
type FallbackList struct {
	Industries []Industry `yaml:"industries"`
}

// LoadFallback reads the list at path, or the bundled list when path is empty.
func LoadFallback(path string) (*FallbackList, error) {
	data := defaultFallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fallback list: %w", err)
		}
		data = b
	}
	return ParseFallback(data)
}

// ParseFallback decodes a YAML fallback list.
func ParseFallback(data []byte) (*FallbackList, error) {
	var f FallbackList
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fallback list: %w", err)
	}
	if len(f.Industries) == 0 {
		return nil, fmt.Errorf("fallback list has no industries")
	}
	for i, ind := range f.Industries {
		if strings.TrimSpace(ind.Name) == "" {
			return nil, fmt.Errorf("fallback industry #%d has no name", i+1)
		}
		f.Industries[i].Codes = dedupe(ind.Codes)
	}
	return &f, nil
}

// Names lists the industries in file order.
func (f *FallbackList) Names() []string {
	out := make([]string, len(f.Industries))
	for i, ind := range f.Industries {
		out[i] = ind.Name
	}
	return out
}

// Codes returns the codes of the named industries, or of every industry when
// none are named.
func (f *FallbackList) Codes(industries ...string) []string {
	want := make(map[string]bool, len(industries))
	for _, n := range industries {
		want[strings.TrimSpace(n)] = true
	}
	var out []string
	for _, ind := range f.Industries {
		if len(want) == 0 || want[ind.Name] {
			out = append(out, ind.Codes...)
		}
	}
	return dedupe(out)
}
