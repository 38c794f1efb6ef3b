package types

import "strings"

// ClassTraits is the precomputed classification of a class declaration
type ClassTraits uint8

const (
	TraitNormal     ClassTraits = 0
	TraitStructure  ClassTraits = 1 << iota // laid out as a raw memory structure, never faults
	TraitUnmanaged                          // methods run without GC cooperation
	TraitStaticInit                         // initialized eagerly at startup
	TraitFunction                           // native function pointer type
	TraitClassInit                          // declares a <clinit>
)

var traitNames = []struct {
	trait ClassTraits
	name  string
}{
	{TraitStructure, "structure"},
	{TraitUnmanaged, "unmanaged"},
	{TraitStaticInit, "staticinit"},
	{TraitFunction, "function"},
	{TraitClassInit, "clinit"},
}

// Has reports whether all bits of t are set
func (c ClassTraits) Has(t ClassTraits) bool {
	return c&t == t
}

func (c ClassTraits) String() string {
	var names []string
	for _, tn := range traitNames {
		if c.Has(tn.trait) {
			names = append(names, tn.name)
		}
	}
	if len(names) == 0 {
		return "normal"
	}
	return strings.Join(names, " ")
}

// ParseClassTrait maps a textual trait name to its bit
func ParseClassTrait(name string) (ClassTraits, bool) {
	for _, tn := range traitNames {
		if tn.name == name {
			return tn.trait, true
		}
	}
	return TraitNormal, false
}

// MethodTraits describes how a single method cooperates with the runtime
type MethodTraits uint8

const (
	MethodNormal    MethodTraits = 0
	MethodStatic    MethodTraits = 1 << iota
	MethodUnmanaged              // never triggers a collection
	MethodManaged                // overrides an unmanaged owner class
	MethodNative
)

// Has reports whether all bits of t are set
func (m MethodTraits) Has(t MethodTraits) bool {
	return m&t == t
}

// MethodReader is the metadata of one declared method
type MethodReader struct {
	Reference MethodReference
	Traits    MethodTraits
}

// IsStatic reports whether the method has no receiver
func (m *MethodReader) IsStatic() bool {
	return m.Traits.Has(MethodStatic)
}

// ClassReader is the metadata of one declared class
type ClassReader struct {
	Name    string
	Parent  string
	Traits  ClassTraits
	Methods map[string]*MethodReader // keyed by descriptor
}

// NewClassReader creates class metadata with no methods
func NewClassReader(name, parent string, traits ClassTraits) *ClassReader {
	return &ClassReader{
		Name:    name,
		Parent:  parent,
		Traits:  traits,
		Methods: make(map[string]*MethodReader),
	}
}

// AddMethod declares a method on the class
func (c *ClassReader) AddMethod(method *MethodReader) {
	c.Methods[method.Reference.Descriptor()] = method
}

// Method looks a method up by its descriptor
func (c *ClassReader) Method(descriptor string) *MethodReader {
	return c.Methods[descriptor]
}

// HasClassInitializer reports whether the class declares a static initializer
func (c *ClassReader) HasClassInitializer() bool {
	if c.Traits.Has(TraitClassInit) {
		return true
	}
	for _, m := range c.Methods {
		if m.Reference.IsClassInitializer() {
			return true
		}
	}
	return false
}

// ClassSource provides class metadata; Get returns nil for unknown classes
type ClassSource interface {
	Get(name string) *ClassReader
}

// ClassRegistry is the classification table of one compilation unit
type ClassRegistry struct {
	classes map[string]*ClassReader
	order   []string
}

// NewClassRegistry creates an empty registry
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{
		classes: make(map[string]*ClassReader),
	}
}

// AddClass registers a class, replacing any earlier declaration with the same name
func (cr *ClassRegistry) AddClass(class *ClassReader) {
	if _, exists := cr.classes[class.Name]; !exists {
		cr.order = append(cr.order, class.Name)
	}
	cr.classes[class.Name] = class
}

// Get returns the class metadata or nil if the class is unknown
func (cr *ClassRegistry) Get(name string) *ClassReader {
	return cr.classes[name]
}

// IsKnown checks if a class is declared in this registry
func (cr *ClassRegistry) IsKnown(name string) bool {
	return cr.classes[name] != nil
}

// Classes returns all classes in declaration order
func (cr *ClassRegistry) Classes() []*ClassReader {
	result := make([]*ClassReader, 0, len(cr.order))
	for _, name := range cr.order {
		result = append(result, cr.classes[name])
	}
	return result
}

// CompositeSource consults each source in order and returns the first hit
type CompositeSource []ClassSource

// Get returns the first non-nil class from the underlying sources
func (cs CompositeSource) Get(name string) *ClassReader {
	for _, source := range cs {
		if source == nil {
			continue
		}
		if class := source.Get(name); class != nil {
			return class
		}
	}
	return nil
}
