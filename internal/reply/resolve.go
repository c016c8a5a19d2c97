package reply

import (
	"bytes"
	"encoding/json"
)

// The webhook does not commit to one response shape. Resolution is an
// ordered rule list; the first rule that matches wins:
//
//  1. bare JSON string          -> the string itself
//  2. object with "output"      -> that field
//  3. array, first elem has "output" -> that field
//  4. object with "message"     -> that field
//  5. anything else             -> the whole response, serialized
type resolver func(raw json.RawMessage) (string, bool)

var resolvers = []resolver{
	resolveBareString,
	resolveOutputField,
	resolveArrayOutput,
	resolveMessageField,
}

// Resolve extracts the reply text from a valid JSON webhook response.
func Resolve(raw json.RawMessage) string {
	for _, rule := range resolvers {
		if text, ok := rule(raw); ok {
			return text
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func resolveBareString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func resolveOutputField(raw json.RawMessage) (string, bool) {
	var obj struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Output == "" {
		return "", false
	}
	return obj.Output, true
}

func resolveArrayOutput(raw json.RawMessage) (string, bool) {
	var arr []struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(raw, &arr); err != nil || len(arr) == 0 || arr[0].Output == "" {
		return "", false
	}
	return arr[0].Output, true
}

func resolveMessageField(raw json.RawMessage) (string, bool) {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Message == "" {
		return "", false
	}
	return obj.Message, true
}
