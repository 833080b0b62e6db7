package engine

import "encoding/json"

// Drifted reports whether a run's output shape diverged from the definition's
// declared schema. The comparison is best-effort and advisory: it never
// blocks persistence, because declared schemas are hints until a user
// validates them.
//
// The declared field set is compared against the output's top-level keys;
// any difference in either direction counts as drift. A definition without a
// schema, or with one no field names can be derived from, never drifts.
func Drifted(schema, output json.RawMessage) bool {
	fields := schemaFields(schema)
	if len(fields) == 0 {
		return false
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(output, &payload); err != nil {
		// Declared an object shape, produced something else.
		return true
	}

	if len(payload) != len(fields) {
		return true
	}
	for key := range payload {
		if _, ok := fields[key]; !ok {
			return true
		}
	}
	return false
}

// schemaFields derives the declared top-level field names. Two shapes are
// understood: JSON Schema ("properties" object) and a plain field→spec map.
func schemaFields(schema json.RawMessage) map[string]struct{} {
	if len(schema) == 0 {
		return nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(schema, &top); err != nil {
		return nil
	}

	if props, ok := top["properties"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(props, &inner); err == nil && len(inner) > 0 {
			top = inner
		}
	}

	fields := make(map[string]struct{}, len(top))
	for key := range top {
		fields[key] = struct{}{}
	}
	return fields
}
