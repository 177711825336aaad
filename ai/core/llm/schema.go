package llm

import "encoding/json"

// JSONSchema implements json.Marshaler for OpenAI's JSON Schema format.
// The alias type prevents infinite recursion during marshaling.
type JSONSchema struct {
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Type                 string                 `json:"type"`
	Description          string                 `json:"description,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

// MarshalJSON implements json.Marshaler for JSONSchema.
func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	type alias JSONSchema
	return json.Marshal((*alias)(s))
}

// String renders the schema for ToolDescriptor.Parameters.
func (s *JSONSchema) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return `{"type":"object"}`
	}
	return string(data)
}

// ObjectSchema builds an object schema with the given properties.
func ObjectSchema(properties map[string]*JSONSchema, required ...string) *JSONSchema {
	if properties == nil {
		properties = map[string]*JSONSchema{}
	}
	return &JSONSchema{Type: "object", Properties: properties, Required: required}
}

// StringProperty builds a string property, optionally restricted to enum values.
func StringProperty(description string, enum ...string) *JSONSchema {
	return &JSONSchema{Type: "string", Description: description, Enum: enum}
}
