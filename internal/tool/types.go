package tool

import "encoding/json"

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Parameter describes one named tool argument.
type Parameter struct {
	Name        string   `json:"name"`
	Type        Type     `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`

	// Items describes the elements of an array parameter.
	Items *Schema `json:"items,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// ThoughtParameter is the argument every tool used by an autonomous executor
// must accept: the model's reasoning for making the call.
var ThoughtParameter = Parameter{
	Name:        "thought",
	Type:        TypeString,
	Description: "Your reasoning about why and how you are using this tool.",
	Required:    true,
}

// ParametersSchema builds the object schema for an ordered parameter list.
// It returns nil when there are no parameters.
func ParametersSchema(params []Parameter) *Schema {
	if len(params) == 0 {
		return nil
	}
	s := &Schema{
		Type:       TypeObject,
		Properties: make(map[string]*Schema, len(params)),
	}
	for _, p := range params {
		s.Properties[p.Name] = &Schema{
			Type:        p.Type,
			Description: p.Description,
			Enum:        append([]string(nil), p.Enum...),
			Items:       p.Items,
		}
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Declare builds the Declaration for t.
func Declare(t Tool) Declaration {
	return Declaration{
		Name:        t.ID(),
		Description: t.Description(),
		Parameters:  ParametersSchema(t.Parameters()),
	}
}

// HasParameter reports whether t declares a parameter called name.
func HasParameter(t Tool, name string, required bool) bool {
	for _, p := range t.Parameters() {
		if p.Name == name {
			return p.Required || !required
		}
	}
	return false
}

// Map renders the schema as a generic JSON object, the form most SDKs accept.
func (s *Schema) Map() map[string]any {
	if s == nil {
		return map[string]any{"type": string(TypeObject), "properties": map[string]any{}}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
