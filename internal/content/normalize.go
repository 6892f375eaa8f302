// Package content resolves extracted document content into a field mapping.
//
// Extraction services are inconsistent about how they encode content: some send a
// JSON object, some send that object as a JSON string, and some stringify it
// again on every hop. Normalize undoes that with a bounded number of parses.
package content

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/akolanti/DocScanAPI/internal/config"
)

const RawContentKey = "raw_content"

// Normalize returns raw as a field mapping.
//
// A mapping is returned as is. A string is parsed as JSON up to
// config.MaxDecodeDepth times; a parse that yields a string is parsed again, a
// parse that yields a mapping ends the loop. Every other outcome falls back to
// {"raw_content": raw}.
func Normalize(raw any) map[string]any {
	return NormalizeDepth(raw, config.MaxDecodeDepth)
}

func NormalizeDepth(raw any, maxDepth int) map[string]any {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return v
	case string:
		return decodeString(v, maxDepth)
	case []byte:
		return decodeString(string(v), maxDepth)
	case json.RawMessage:
		return decodeRaw(v, maxDepth)
	default:
		return map[string]any{RawContentKey: v}
	}
}

func decodeString(original string, maxDepth int) map[string]any {
	current := original
	for attempt := 0; attempt < maxDepth; attempt++ {
		var parsed any
		if err := json.Unmarshal([]byte(current), &parsed); err != nil {
			break
		}
		switch v := parsed.(type) {
		case map[string]any:
			return v
		case string:
			current = v
			continue
		}
		break
	}
	return map[string]any{RawContentKey: original}
}

// decodeRaw handles content read straight from storage, where it is either an
// object or a JSON string literal.
func decodeRaw(raw json.RawMessage, maxDepth int) map[string]any {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return map[string]any{RawContentKey: string(raw)}
	}
	return NormalizeDepth(parsed, maxDepth)
}

// EnvelopeKeys are document-type specific wrappers whose children are shown as
// top level rows.
var EnvelopeKeys = []string{"person-data", "person_data", "personData", "data", "fields"}

type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value any    `json:"value"`
}

// FieldRows flattens content for display. Children of envelope keys are hoisted
// one level and listed first, remaining nested mappings become dotted keys.
// Key is the path Buffer.Edit understands, Label is what a user sees.
func FieldRows(m map[string]any) []Field {
	var rows []Field
	hoisted := make(map[string]bool)

	for _, envelope := range EnvelopeKeys {
		child, ok := m[envelope].(map[string]any)
		if !ok {
			continue
		}
		hoisted[envelope] = true
		for _, k := range sortedKeys(child) {
			rows = appendRows(rows, envelope+"."+k, k, child[k])
		}
	}

	for _, k := range sortedKeys(m) {
		if hoisted[k] {
			continue
		}
		rows = appendRows(rows, k, k, m[k])
	}
	return rows
}

func appendRows(rows []Field, key string, label string, value any) []Field {
	nested, ok := value.(map[string]any)
	if !ok {
		return append(rows, Field{Key: key, Label: label, Value: value})
	}
	for _, k := range sortedKeys(nested) {
		rows = appendRows(rows, key+"."+k, label+"."+k, nested[k])
	}
	return rows
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the flattened row keys, used as spreadsheet columns.
func Keys(m map[string]any) []string {
	rows := FieldRows(m)
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Label)
	}
	return keys
}

// Lookup reads a dotted path written by FieldRows.
func Lookup(m map[string]any, path string) (any, bool) {
	if v, ok := m[path]; ok {
		return v, true
	}
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	child, ok := m[head].(map[string]any)
	if !ok {
		return nil, false
	}
	return Lookup(child, rest)
}
