// Package extract contains pure functions that pull structured values out
// of free-form generated text: embedded JSON, fenced code blocks, enclosure
// dimension variables, and feature flags.
package extract

import (
	"encoding/json"
	"errors"
)

// ErrNoJSON is returned when no JSON value could be located in the text.
var ErrNoJSON = errors.New("no JSON value found in text")

// jsonCandidates scans s for top-level candidates delimited by open/close.
// It handles nested delimiters and string escaping with a byte-level state
// machine. Safe to iterate bytes for ASCII delimiters because UTF-8
// guarantees ASCII bytes never appear inside a multi-byte sequence.
func jsonCandidates(s string, open, close byte) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}
		if b == '"' {
			inString = true
			continue
		}

		if b == open {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == close {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// FirstJSONObject returns the first top-level {...} candidate in s that
// parses as valid JSON.
func FirstJSONObject(s string) (string, bool) {
	for _, c := range jsonCandidates(s, '{', '}') {
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

// FirstJSONArray returns the first top-level [...] candidate in s that
// parses as valid JSON.
func FirstJSONArray(s string) (string, bool) {
	for _, c := range jsonCandidates(s, '[', ']') {
		if json.Valid([]byte(c)) {
			return c, true
		}
	}
	return "", false
}

// DecodeFirstObject unmarshals the first embedded JSON object in s into v.
func DecodeFirstObject(s string, v any) error {
	obj, ok := FirstJSONObject(s)
	if !ok {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(obj), v)
}

// DecodeFirstArray unmarshals the first embedded JSON array in s into v.
func DecodeFirstArray(s string, v any) error {
	arr, ok := FirstJSONArray(s)
	if !ok {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(arr), v)
}
