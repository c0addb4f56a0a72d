package streams

import (
	"maps"
	"slices"
)

// KeyMapper normalizes caller-supplied configuration keys and merges them
// over a base configuration.
type KeyMapper interface {
	// Convert returns a new map containing the base configuration with overrides
	// applied under their canonical key names. Overrides win on collision.
	Convert(overrides map[string]string) map[string]string
}

// ConfigMapper is the default KeyMapper. The base configuration and alias table
// are fixed at construction.
type ConfigMapper struct {
	base    map[string]string
	aliases map[string]string
}

var _ KeyMapper = (*ConfigMapper)(nil)

// NewConfigMapper copies base and aliases, so later changes by the caller
// are not observed by the mapper. aliases maps override keys to canonical keys.
func NewConfigMapper(base, aliases map[string]string) *ConfigMapper {
	m := &ConfigMapper{
		base:    make(map[string]string, len(base)),
		aliases: make(map[string]string, len(aliases)),
	}
	maps.Copy(m.base, base)
	maps.Copy(m.aliases, aliases)
	return m
}

// Convert starts from a copy of the base configuration and writes every override
// under its alias (or under its own key when no alias exists). Overrides are
// applied in key order, so when two of them resolve to the same canonical key
// the result is the same on every call.
func (m *ConfigMapper) Convert(overrides map[string]string) map[string]string {
	props := maps.Clone(m.base)
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		props[m.CanonicalKey(k)] = overrides[k]
	}
	return props
}

// CanonicalKey returns the canonical name for key.
func (m *ConfigMapper) CanonicalKey(key string) string {
	if canonical, ok := m.aliases[key]; ok {
		return canonical
	}
	return key
}

// Base returns a copy of the base configuration.
func (m *ConfigMapper) Base() map[string]string {
	return maps.Clone(m.base)
}
