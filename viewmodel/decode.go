package viewmodel

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// text accepts a JSON string or number and ignores anything else.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = text(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*t = text(b)
	}
	return nil
}

// epoch accepts seconds as a JSON number or numeric string.
type epoch int64

func (e *epoch) UnmarshalJSON(b []byte) error {
	var t text
	_ = t.UnmarshalJSON(b)
	s := string(t)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*e = epoch(n)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*e = epoch(int64(f))
	}
	return nil
}

// firstOf returns the first non-empty candidate, mirroring a `a || b` chain.
func firstOf(candidates ...text) string {
	for _, c := range candidates {
		if c != "" {
			return string(c)
		}
	}
	return ""
}

// objects decodes raw as a JSON object and returns the elements of the array
// stored under the first of keys that holds an array. Non-object elements
// are dropped.
func objects(raw []byte, keys ...string) []json.RawMessage {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil
	}
	for _, key := range keys {
		v, ok := root[key]
		if !ok || string(bytes.TrimSpace(v)) == "null" {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			continue
		}
		out := make([]json.RawMessage, 0, len(items))
		for _, item := range items {
			if trimmed := bytes.TrimSpace(item); len(trimmed) > 0 && trimmed[0] == '{' {
				out = append(out, item)
			}
		}
		return out
	}
	return nil
}

// sourceFields decodes one object, swallowing type mismatches field by field.
func sourceFields[T any](raw json.RawMessage) (T, bool) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

func splitSeconds(ts string) (int64, bool) {
	head, _, _ := strings.Cut(ts, ".")
	if head == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
