package core

import (
	"bytes"
	"encoding/json"
)

// Fallback stands in for a response body that was not valid JSON.
type Fallback struct {
	Message string `json:"msg"`
	Raw     string `json:"raw"`
}

// Payload is the result of a signed GET. Exactly one of Body and Fallback is set.
type Payload struct {
	Status   int
	Body     json.RawMessage
	Fallback *Fallback
	// APIErr is the classified exchange error when a non-2xx response carried one.
	APIErr error
}

func NewPayload(status int, body []byte) Payload {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return Payload{
			Status:   status,
			Fallback: &Fallback{Message: "unable to parse response", Raw: string(body)},
		}
	}
	return Payload{Status: status, Body: json.RawMessage(trimmed)}
}

func (p Payload) IsFallback() bool {
	return p.Fallback != nil
}

func (p Payload) IsArray() bool {
	return p.Fallback == nil && len(p.Body) > 0 && p.Body[0] == '['
}

func (p Payload) IsObject() bool {
	return p.Fallback == nil && len(p.Body) > 0 && p.Body[0] == '{'
}

// Object decodes the payload as a JSON object. ok is false for fallbacks and non-objects.
func (p Payload) Object() (map[string]json.RawMessage, bool) {
	if !p.IsObject() {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(p.Body, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Text returns the raw response text.
func (p Payload) Text() string {
	if p.Fallback != nil {
		return p.Fallback.Raw
	}
	return string(p.Body)
}
