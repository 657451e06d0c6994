package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language is the enablement entry for one checker language.
type Language struct {
	Enabled bool
	Options map[string]any
}

// Enablement maps a checker language (e.g. "ruby") to its entry. Treat it
// as an immutable snapshot once built.
type Enablement map[string]Language

var languageAliases = map[string]string{
	"java_script":   "javascript",
	"coffee_script": "coffeescript",
	"golang":        "go",
}

func normalizeLanguage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := languageAliases[name]; ok {
		return alias
	}
	return name
}

// DefaultEnablement is applied before any repository overrides. External
// tool checkers start disabled since the tool may not be installed.
func DefaultEnablement() Enablement {
	return Enablement{
		"ruby":         {Enabled: true},
		"coffeescript": {Enabled: true},
		"javascript":   {Enabled: true},
		"scss":         {Enabled: true},
		"go":           {Enabled: true},
		"python":       {Enabled: false},
	}
}

func (e Enablement) Enabled(language string) bool {
	entry, ok := e[normalizeLanguage(language)]
	return ok && entry.Enabled
}

func (e Enablement) Options(language string) map[string]any {
	return e[normalizeLanguage(language)].Options
}

// Clone returns a deep copy of e, including option maps.
func (e Enablement) Clone() Enablement {
	out := make(Enablement, len(e))
	for name, entry := range e {
		var options map[string]any
		if entry.Options != nil {
			options = make(map[string]any, len(entry.Options))
			for k, v := range entry.Options {
				options[k] = v
			}
		}
		out[name] = Language{Enabled: entry.Enabled, Options: options}
	}
	return out
}

type override struct {
	enabled *bool
	options map[string]any
}

// ParseEnablement decodes a repository style file and merges it on top of
// base. Each top-level key names a language and holds either a boolean
// or a mapping with an optional "enabled" key; every other key is kept
// as a checker option.
//
//	ruby:
//	  enabled: true
//	  max_line_length: 100
//	java_script: false
func ParseEnablement(data []byte, base Enablement) (Enablement, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing style config: %w", err)
	}

	overrides := make(map[string]override, len(doc))
	for name, node := range doc {
		o, err := decodeOverride(name, &node)
		if err != nil {
			return nil, err
		}
		overrides[normalizeLanguage(name)] = o
	}
	return merge(base, overrides), nil
}

func decodeOverride(name string, node *yaml.Node) (override, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return override{}, nil
		}
		var enabled bool
		if err := node.Decode(&enabled); err != nil {
			return override{}, fmt.Errorf("style config %q: expected a boolean: %w", name, err)
		}
		return override{enabled: &enabled}, nil
	case yaml.MappingNode:
		var options map[string]any
		if err := node.Decode(&options); err != nil {
			return override{}, fmt.Errorf("style config %q: %w", name, err)
		}
		o := override{}
		if raw, ok := options["enabled"]; ok {
			enabled, ok := raw.(bool)
			if !ok {
				return override{}, fmt.Errorf("style config %q: enabled must be a boolean, got %v", name, raw)
			}
			o.enabled = &enabled
			delete(options, "enabled")
		}
		if len(options) > 0 {
			o.options = options
		}
		return o, nil
	default:
		return override{}, fmt.Errorf("style config %q: unsupported value", name)
	}
}

func merge(base Enablement, overrides map[string]override) Enablement {
	out := base.Clone()
	for name, o := range overrides {
		entry := out[name]
		if o.enabled != nil {
			entry.Enabled = *o.enabled
		} else if _, known := base[name]; !known {
			// a section for an unknown language enables it
			entry.Enabled = true
		}
		if o.options != nil {
			if entry.Options == nil {
				entry.Options = make(map[string]any, len(o.options))
			}
			for k, v := range o.options {
				entry.Options[k] = v
			}
		}
		out[name] = entry
	}
	return out
}
