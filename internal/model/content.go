package model

import (
	"encoding/json"
	"strings"
)

// ContentJSON encodes campaign content for the wire. Content holding a JSON
// object or array is sent as that document; anything else as a string.
func ContentJSON(content string) json.RawMessage {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed)
		}
	}
	b, _ := json.Marshal(content)
	return b
}

// ContentString is the inverse of ContentJSON: strings are unquoted and any
// other JSON value is kept verbatim.
func ContentString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return trimmed
}

// MarshalJSON writes content through ContentJSON.
func (d Draft) MarshalJSON() ([]byte, error) {
	type draft Draft
	return json.Marshal(struct {
		draft
		Content json.RawMessage `json:"content"`
	}{draft(d), ContentJSON(d.Content)})
}

// UnmarshalJSON accepts content as a string or a JSON document.
func (d *Draft) UnmarshalJSON(data []byte) error {
	type draft Draft
	aux := struct {
		*draft
		Content json.RawMessage `json:"content"`
	}{draft: (*draft)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Content = ContentString(aux.Content)
	return nil
}
