package domain

import (
	"encoding/json"
	"fmt"
)

// Message is a single chat message exchanged with callers and providers.
// Keys other than role and content are kept verbatim in Extra.
type Message struct {
	Role    string                     `json:"role" yaml:"role"`
	Content string                     `json:"content" yaml:"content"`
	Extra   map[string]json.RawMessage `json:"-" yaml:"-"`
}

// Clone returns a deep copy.
func (m Message) Clone() Message {
	out := m
	out.Extra = cloneRaw(m.Extra)
	return out
}

// MarshalJSON writes role, content and Extra as one object.
func (m Message) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		doc[k] = v
	}
	doc["role"] = m.Role
	doc["content"] = m.Content
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a message, keeping unknown keys in Extra.
func (m *Message) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var out Message
	for key, raw := range doc {
		var err error
		switch key {
		case "role":
			err = json.Unmarshal(raw, &out.Role)
		case "content":
			err = json.Unmarshal(raw, &out.Content)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("message %s: %w", key, err)
		}
	}
	*m = out
	return nil
}

// CallRef identifies the call a turn belongs to.
type CallRef struct {
	ID string `json:"id"`
}

// ChatRequest is the inbound body of POST /chat/completions.
type ChatRequest struct {
	Call     *CallRef  `json:"call"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// CallID returns the call identifier or an empty string when absent.
func (r ChatRequest) CallID() string {
	if r.Call == nil {
		return ""
	}
	return r.Call.ID
}

// FunctionSpec describes a function advertised to the model.
// Parameters is a JSON Schema object.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// FunctionCall is a function invocation surfaced by a provider.
// Arguments holds the raw JSON text produced by the model.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ProviderRequest is the normalized input handed to a provider adapter.
type ProviderRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int64
	Temperature float64
	Stream      bool

	Functions []FunctionSpec
	// FunctionCall is the invocation mode ("auto") when Functions is non-empty.
	FunctionCall string
}

// Fragment is one unit of a provider token stream.
type Fragment struct {
	Content      string
	FunctionCall *FunctionCall
}

// Completion is a provider-shaped, non-streaming response passed through verbatim.
type Completion = json.RawMessage
