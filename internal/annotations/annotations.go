// Package annotations holds typed key/value metadata attached to a compiled
// program. The lowering passes persist call-site tables through it and the
// runtime support layer reads them back.
package annotations

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Value is one element value of an annotation. Exactly one field is set.
type Value struct {
	Int        *int64      `yaml:"int,omitempty"`
	String     *string     `yaml:"string,omitempty"`
	List       []Value     `yaml:"list,omitempty"`
	Annotation *Annotation `yaml:"annotation,omitempty"`
}

// IntValue wraps an integer
func IntValue(v int64) Value {
	return Value{Int: &v}
}

// StringValue wraps a string
func StringValue(s string) Value {
	return Value{String: &s}
}

// ListValue wraps a list of values
func ListValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{List: items}
}

// AnnotationValue wraps a nested annotation
func AnnotationValue(a *Annotation) Value {
	return Value{Annotation: a}
}

// AsInt returns the integer held by v
func (v Value) AsInt() (int64, error) {
	if v.Int == nil {
		return 0, fmt.Errorf("value is not an integer")
	}
	return *v.Int, nil
}

// AsString returns the string held by v
func (v Value) AsString() (string, error) {
	if v.String == nil {
		return "", fmt.Errorf("value is not a string")
	}
	return *v.String, nil
}

// AsAnnotation returns the nested annotation held by v
func (v Value) AsAnnotation() (*Annotation, error) {
	if v.Annotation == nil {
		return nil, fmt.Errorf("value is not an annotation")
	}
	return v.Annotation, nil
}

// Annotation is a typed set of named values
type Annotation struct {
	Type   string           `yaml:"type"`
	Fields map[string]Value `yaml:"fields,omitempty"`
}

// New creates an empty annotation of the given type
func New(typ string) *Annotation {
	return &Annotation{Type: typ, Fields: make(map[string]Value)}
}

// Set stores a field value and returns the annotation for chaining
func (a *Annotation) Set(name string, value Value) *Annotation {
	if a.Fields == nil {
		a.Fields = make(map[string]Value)
	}
	a.Fields[name] = value
	return a
}

// Get returns a field value
func (a *Annotation) Get(name string) (Value, bool) {
	v, ok := a.Fields[name]
	return v, ok
}

// Int returns an integer field or an error naming the missing field
func (a *Annotation) Int(name string) (int64, error) {
	v, ok := a.Fields[name]
	if !ok {
		return 0, fmt.Errorf("%s: missing field %q", a.Type, name)
	}
	i, err := v.AsInt()
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %w", a.Type, name, err)
	}
	return i, nil
}

// Text returns a string field; ok is false when the field is absent
func (a *Annotation) Text(name string) (string, bool, error) {
	v, ok := a.Fields[name]
	if !ok {
		return "", false, nil
	}
	s, err := v.AsString()
	if err != nil {
		return "", true, fmt.Errorf("%s.%s: %w", a.Type, name, err)
	}
	return s, true, nil
}

// List returns a list field; a missing field is an empty list
func (a *Annotation) List(name string) []Value {
	return a.Fields[name].List
}

// Container is the set of annotations attached to one compiled program
type Container struct {
	Annotations []*Annotation `yaml:"annotations"`
}

// NewContainer creates an empty container
func NewContainer() *Container {
	return &Container{}
}

// Add appends an annotation
func (c *Container) Add(a *Annotation) {
	c.Annotations = append(c.Annotations, a)
}

// All returns every annotation of the given type in insertion order
func (c *Container) All(typ string) []*Annotation {
	var result []*Annotation
	for _, a := range c.Annotations {
		if a.Type == typ {
			result = append(result, a)
		}
	}
	return result
}

// Get returns the first annotation of the given type, or nil
func (c *Container) Get(typ string) *Annotation {
	for _, a := range c.Annotations {
		if a.Type == typ {
			return a
		}
	}
	return nil
}

// Marshal encodes the container as YAML
func (c *Container) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Unmarshal decodes a container from YAML
func Unmarshal(data []byte) (*Container, error) {
	c := &Container{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decoding annotations: %w", err)
	}
	return c, nil
}

// WriteFile stores the container as a YAML file
func (c *Container) WriteFile(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a container from a YAML file
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
