package types

import (
	"fmt"
	"strings"
)

// MethodReference identifies a method by owner class, name and signature
type MethodReference struct {
	ClassName  string
	Name       string
	Params     []ValueType
	ReturnType ValueType
}

// NewMethodReference builds a method reference; the last type is the return type
func NewMethodReference(className, name string, signature ...ValueType) MethodReference {
	if len(signature) == 0 {
		return MethodReference{ClassName: className, Name: name, ReturnType: VoidType}
	}
	return MethodReference{
		ClassName:  className,
		Name:       name,
		Params:     append([]ValueType(nil), signature[:len(signature)-1]...),
		ReturnType: signature[len(signature)-1],
	}
}

// ParameterCount returns the number of declared parameters
func (m MethodReference) ParameterCount() int {
	return len(m.Params)
}

// Descriptor returns the name and signature without the owner class, e.g. "m(int, A): void"
func (m MethodReference) Descriptor() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.String()
	}
	ret := "void"
	if m.ReturnType != nil {
		ret = m.ReturnType.String()
	}
	return fmt.Sprintf("%s(%s): %s", m.Name, strings.Join(params, ", "), ret)
}

func (m MethodReference) String() string {
	return m.ClassName + "#" + m.Descriptor()
}

// Equal reports whether two references name the same method
func (m MethodReference) Equal(other MethodReference) bool {
	return m.String() == other.String()
}

// IsClassInitializer reports whether the method is a static initializer
func (m MethodReference) IsClassInitializer() bool {
	return m.Name == ClassInitializerName
}

// FieldReference identifies a field by owner class and name
type FieldReference struct {
	ClassName string
	FieldName string
}

func (f FieldReference) String() string {
	return f.ClassName + "#" + f.FieldName
}
