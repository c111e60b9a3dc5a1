package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider documents are loosely shaped. The helpers below decode one field
// at a time and report absence instead of failing the whole document.

func lookup(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, key := range keys {
		if raw, ok := fields[key]; ok && !isNull(raw) {
			return raw, true
		}
	}
	return nil, false
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func objectFields(data []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// decodeStrings accepts an array of scalars or a single string.
func decodeStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return []string{s}
		}
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := decodeString(item); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// orderedPairs decodes a JSON object into key/value pairs in document order.
func orderedPairs(raw json.RawMessage) ([][2]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, false
	}

	var pairs [][2]string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, false
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		pairs = append(pairs, [2]string{key, flattenText(value)})
	}
	return pairs, true
}

// flattenText renders a scalar, list or object value as display text.
func flattenText(raw json.RawMessage) string {
	if s, ok := decodeString(raw); ok {
		return s
	}
	if items := decodeStrings(raw); len(items) > 0 {
		return strings.Join(items, "; ")
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return compact.String()
}

func decodeGlossary(raw json.RawMessage) []GlossaryEntry {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		pairs, ok := orderedPairs(raw)
		if !ok {
			return nil
		}
		out := make([]GlossaryEntry, 0, len(pairs))
		for _, pair := range pairs {
			out = append(out, GlossaryEntry{Term: pair[0], Definition: pair[1]})
		}
		return out
	}

	out := make([]GlossaryEntry, 0, len(items))
	for _, item := range items {
		if entry, ok := decodeGlossaryEntry(item); ok {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func decodeGlossaryEntry(raw json.RawMessage) (GlossaryEntry, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		term, definition, _ := strings.Cut(s, ":")
		term = strings.TrimSpace(term)
		if term == "" {
			return GlossaryEntry{}, false
		}
		return GlossaryEntry{Term: term, Definition: strings.TrimSpace(definition)}, true
	}

	fields, ok := objectFields(raw)
	if !ok {
		return GlossaryEntry{}, false
	}
	var entry GlossaryEntry
	if v, ok := lookup(fields, "term", "word", "name"); ok {
		entry.Term, _ = decodeString(v)
	}
	if v, ok := lookup(fields, "definition", "meaning", "description"); ok {
		entry.Definition = flattenText(v)
	}
	if entry.Term == "" && entry.Definition == "" && len(fields) == 1 {
		for key, value := range fields {
			entry = GlossaryEntry{Term: key, Definition: flattenText(value)}
		}
	}
	if entry.Term == "" {
		return GlossaryEntry{}, false
	}
	return entry, true
}

func decodeStudyPlan(raw json.RawMessage) map[string]string {
	if pairs, ok := orderedPairs(raw); ok {
		if len(pairs) == 0 {
			return nil
		}
		out := make(map[string]string, len(pairs))
		for _, pair := range pairs {
			out[pair[0]] = pair[1]
		}
		return out
	}

	items := decodeStrings(raw)
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]string, len(items))
	for i, item := range items {
		out[fmt.Sprintf("Day %d", i+1)] = item
	}
	return out
}
