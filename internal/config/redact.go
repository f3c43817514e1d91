package config

import (
	"encoding/json"
	"regexp"
)

const redacted = "***"

// secretFieldPattern matches JSON field names that must never surface in the
// operator-facing /config response (spec.md §6): "keys whose names contain
// key|secret|token|password|private are scrubbed recursively".
var secretFieldPattern = regexp.MustCompile(`(?i)key|secret|token|password|private|dsn`)

// Redacted marshals cfg to a generic JSON tree and walks it recursively,
// replacing the value of any object key matching secretFieldPattern with a
// fixed placeholder regardless of nesting depth. This generalizes the
// teacher's per-field redact() calls (internal/config/secrets.go in the
// original) from an explicit field list to a name-pattern walk, since the
// spec requires scrubbing by field-name pattern rather than an enumerated set.
func Redacted(cfg *Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}

	redactTree(tree)
	return tree, nil
}

// redactTree mutates a decoded JSON object in place, scrubbing any key whose
// name matches secretFieldPattern and recursing into nested objects/arrays.
func redactTree(node map[string]any) {
	for k, v := range node {
		if secretFieldPattern.MatchString(k) {
			if s, ok := v.(string); ok && s != "" {
				node[k] = redacted
				continue
			}
		}
		switch child := v.(type) {
		case map[string]any:
			redactTree(child)
		case []any:
			redactSlice(child)
		}
	}
}

func redactSlice(items []any) {
	for _, item := range items {
		switch child := item.(type) {
		case map[string]any:
			redactTree(child)
		case []any:
			redactSlice(child)
		}
	}
}
