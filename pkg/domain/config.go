package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

const (
	keyModel      = "model"
	keyForwarding = "forwardingPhoneNumber"

	keyProvider = "provider"
	keyModelID  = "model"
	keyMessages = "messages"
)

// ModelConfig selects the provider and model a dispatch targets.
// Keys of the model object other than provider, model and messages are kept
// verbatim in Extra and written back unchanged.
type ModelConfig struct {
	Provider string
	Model    string
	Messages []Message
	Extra    map[string]json.RawMessage
}

// AssistantConfig is the mutable runtime configuration of the assistant.
// Top-level keys other than model and forwardingPhoneNumber are kept verbatim in Extra.
type AssistantConfig struct {
	Model                 ModelConfig
	ForwardingPhoneNumber string
	Extra                 map[string]json.RawMessage

	// forwardingSet records that forwardingPhoneNumber is present in the
	// document, possibly as "". A null value removes the key.
	forwardingSet bool
}

// DefaultAssistantConfig returns the configuration written on first run.
func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		Model: ModelConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Messages: []Message{{
				Role:    "system",
				Content: "You are an assistant. When the user asks to be transferred, use the transferCall function.",
			}},
		},
		ForwardingPhoneNumber: "+40761983263",
		forwardingSet:         true,
	}
}

// TransferEnabled reports whether the transferCall function is advertised.
func (c AssistantConfig) TransferEnabled() bool {
	return c.ForwardingPhoneNumber != ""
}

// Clone returns a deep copy.
func (c AssistantConfig) Clone() AssistantConfig {
	out := c
	out.Model = c.Model.Clone()
	out.Extra = cloneRaw(c.Extra)
	return out
}

// Clone returns a deep copy.
func (m ModelConfig) Clone() ModelConfig {
	out := m
	if m.Messages != nil {
		out.Messages = make([]Message, len(m.Messages))
		for i, msg := range m.Messages {
			out.Messages[i] = msg.Clone()
		}
	}
	out.Extra = cloneRaw(m.Extra)
	return out
}

// Merge applies a shallow, top-level patch. Nested objects are replaced
// wholesale, never deep-merged. A null forwardingPhoneNumber clears it.
func (c AssistantConfig) Merge(patch map[string]json.RawMessage) (AssistantConfig, error) {
	out := c.Clone()
	for _, key := range slices.Sorted(maps.Keys(patch)) {
		raw := patch[key]
		switch key {
		case keyModel:
			var m ModelConfig
			if isNull(raw) {
				return c, fmt.Errorf("%w: model cannot be null", ErrInvalidConfig)
			}
			if err := json.Unmarshal(raw, &m); err != nil {
				return c, fmt.Errorf("%w: model: %v", ErrInvalidConfig, err)
			}
			out.Model = m
		case keyForwarding:
			var number *string
			if err := json.Unmarshal(raw, &number); err != nil {
				return c, fmt.Errorf("%w: forwardingPhoneNumber: %v", ErrInvalidConfig, err)
			}
			out.ForwardingPhoneNumber = ""
			out.forwardingSet = number != nil
			if number != nil {
				out.ForwardingPhoneNumber = *number
			}
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = slices.Clone(raw)
		}
	}
	return out, nil
}

// MarshalJSON flattens the known fields and Extra into one object.
func (c AssistantConfig) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(c.Extra)+2)
	for k, v := range c.Extra {
		doc[k] = v
	}
	doc[keyModel] = c.Model
	if c.forwardingSet || c.ForwardingPhoneNumber != "" {
		doc[keyForwarding] = c.ForwardingPhoneNumber
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a full configuration document.
func (c *AssistantConfig) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("configuration must be a JSON object")
	}
	merged, err := AssistantConfig{}.Merge(doc)
	if err != nil {
		return err
	}
	*c = merged
	return nil
}

// MarshalJSON writes provider and model when set, messages when present, and Extra.
func (m ModelConfig) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		doc[k] = v
	}
	if m.Provider != "" {
		doc[keyProvider] = m.Provider
	}
	if m.Model != "" {
		doc[keyModelID] = m.Model
	}
	if m.Messages != nil {
		doc[keyMessages] = m.Messages
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a model object, keeping unknown keys in Extra.
func (m *ModelConfig) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	var out ModelConfig
	for key, raw := range doc {
		var err error
		switch key {
		case keyProvider:
			err = json.Unmarshal(raw, &out.Provider)
		case keyModelID:
			err = json.Unmarshal(raw, &out.Model)
		case keyMessages:
			err = json.Unmarshal(raw, &out.Messages)
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	*m = out
	return nil
}

func cloneRaw(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
