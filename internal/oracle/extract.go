package oracle

import (
	"encoding/json"
	"errors"
	"strings"

	"validity.app/auditor/internal/model"
)

var (
	ErrNoJSONObject = errors.New("no JSON object found in response")
	ErrNotAnObject  = errors.New("response JSON is not an object")
)

// StripCodeFences removes a surrounding markdown fence (``` or ```json).
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractFirstObject returns the first balanced {...} region of s. Braces
// inside JSON strings are ignored.
func ExtractFirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParsePayload decodes an oracle response into a raw payload: fences are
// stripped, a strict parse is tried, then the first balanced object.
func ParsePayload(text string) (model.RawPayload, error) {
	text = StripCodeFences(text)

	p, err := decodeObject(text)
	if err == nil {
		return p, nil
	}

	obj, ok := ExtractFirstObject(text)
	if !ok {
		return nil, ErrNoJSONObject
	}
	return decodeObject(obj)
}

func decodeObject(text string) (model.RawPayload, error) {
	var p model.RawPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotAnObject
	}
	return p, nil
}
