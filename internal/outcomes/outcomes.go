// Package outcomes maps provider-specific outcome labels onto the canonical
// outcome names used when comparing quotes across providers.
package outcomes

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Wildcard is the provider key whose aliases apply to every provider.
const Wildcard = "*"

// Mapper resolves outcome labels. The zero value normalises labels only.
type Mapper struct {
	markets map[string][]string
	aliases map[string]map[string]string
}

type file struct {
	Markets map[string][]string          `yaml:"markets"`
	Aliases map[string]map[string]string `yaml:"aliases"`
}

//go:embed default.yaml
var defaultMap []byte

// Default returns the built-in map covering the common two- and three-way
// markets. It is used when no mapping file is configured.
func Default() *Mapper {
	m, err := Parse(defaultMap)
	if err != nil {
		panic(fmt.Sprintf("outcomes: built-in map: %v", err))
	}
	return m
}

// Load reads a mapping file from disk.
func Load(path string) (*Mapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read outcome map: %w", err)
	}
	return Parse(data)
}

// Parse builds a Mapper from YAML. Alias keys and targets are normalised so
// lookups are case and whitespace insensitive.
func Parse(data []byte) (*Mapper, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse outcome map: %w", err)
	}

	m := &Mapper{
		markets: make(map[string][]string, len(f.Markets)),
		aliases: make(map[string]map[string]string, len(f.Aliases)),
	}

	for market, outs := range f.Markets {
		if len(outs) < 2 {
			return nil, fmt.Errorf("market %q lists %d outcomes, need at least 2", market, len(outs))
		}
		seen := make(map[string]bool, len(outs))
		canon := make([]string, 0, len(outs))
		for _, o := range outs {
			n := Normalize(o)
			if n == "" {
				return nil, fmt.Errorf("market %q has an empty outcome", market)
			}
			if seen[n] {
				return nil, fmt.Errorf("market %q lists outcome %q twice", market, n)
			}
			seen[n] = true
			canon = append(canon, n)
		}
		m.markets[market] = canon
	}

	for provider, table := range f.Aliases {
		t := make(map[string]string, len(table))
		for label, target := range table {
			t[Normalize(label)] = Normalize(target)
		}
		m.aliases[provider] = t
	}

	return m, nil
}

// Canonical resolves a provider's label. Provider aliases win over wildcard
// aliases; unmapped labels come back normalised.
func (m *Mapper) Canonical(providerID, label string) string {
	n := Normalize(label)
	if m == nil {
		return n
	}
	if t, ok := m.aliases[providerID]; ok {
		if c, ok := t[n]; ok {
			return c
		}
	}
	if t, ok := m.aliases[Wildcard]; ok {
		if c, ok := t[n]; ok {
			return c
		}
	}
	return n
}

// Outcomes returns the configured outcome set for a market type, or nil.
func (m *Mapper) Outcomes(marketType string) []string {
	if m == nil {
		return nil
	}
	outs, ok := m.markets[marketType]
	if !ok {
		return nil
	}
	return append([]string(nil), outs...)
}

// Normalize lowercases, trims and collapses internal whitespace.
func Normalize(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
