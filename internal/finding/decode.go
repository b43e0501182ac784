package finding

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The helpers below never fail: a value of the wrong JSON shape decodes to
// the zero value of the requested shape.

func asObject(raw json.RawMessage) map[string]json.RawMessage {
	if !startsWith(raw, '{') {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

func asArray(raw json.RawMessage) []json.RawMessage {
	if !startsWith(raw, '[') {
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil
	}
	return arr
}

func asString(raw json.RawMessage) string {
	if !startsWith(raw, '"') {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// asText is asString that also accepts numbers, rendered as written.
func asText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			return n.String()
		}
	}
	return asString(raw)
}

// asInt accepts integral numbers and numeric strings.
func asInt(raw json.RawMessage) int {
	text := strings.TrimSpace(asText(raw))
	if text == "" {
		return 0
	}
	if i, err := strconv.Atoi(text); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return int(f)
	}
	return 0
}

func asStringList(raw json.RawMessage) []string {
	items := asArray(raw)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := asText(item); strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func startsWith(raw json.RawMessage, c byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == c
}
