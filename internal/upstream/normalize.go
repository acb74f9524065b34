package upstream

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Result is the envelope every adapter operation returns. Data is the
// upstream payload passed through untouched: json.RawMessage for JSON bodies,
// string for text/HTML, or a typed value built by this package (Diagnostic,
// declaration records).
type Result struct {
	Success bool   `json:"success"`
	Agency  string `json:"agency"`
	Action  string `json:"action,omitempty"`
	Data    any    `json:"data"`
	// Reason is set whenever Success is false.
	Reason Kind `json:"reason,omitempty"`
}

// Succeeded wraps a payload in a success envelope
func Succeeded(agency, action string, data any) *Result {
	return &Result{Success: true, Agency: agency, Action: action, Data: data}
}

// Failed wraps a payload in a failure envelope with its reason
func Failed(agency, action string, reason Kind, data any) *Result {
	return &Result{Success: false, Agency: agency, Action: action, Data: data, Reason: reason}
}

// Normalize wraps a raw body: valid JSON stays raw JSON, anything else becomes text
func Normalize(agency, action string, body []byte) *Result {
	return Succeeded(agency, action, payload(body))
}

func payload(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	return string(body)
}

// isJSONBody reports whether body is a non-empty JSON document
func isJSONBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && json.Valid(trimmed)
}

// decodeObject decodes a JSON object keeping numbers as json.Number
func decodeObject(body []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// stringField returns m[key] when it is a non-empty string
func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// boolField returns m[key] when it is a JSON boolean
func boolField(m map[string]any, key string) (value, present bool) {
	v, ok := m[key].(bool)
	return v, ok
}

// numberIs reports whether m[key] is the given integer (numeric or numeric string)
func numberIs(m map[string]any, key string, want int64) bool {
	switch v := m[key].(type) {
	case json.Number:
		n, err := v.Int64()
		return err == nil && n == want
	case string:
		n, err := json.Number(strings.TrimSpace(v)).Int64()
		return err == nil && n == want
	}
	return false
}
