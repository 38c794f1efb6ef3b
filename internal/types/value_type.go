package types

import "strings"

// PrimitiveKind enumerates the primitive value types of the managed IR
type PrimitiveKind int

const (
	Boolean PrimitiveKind = iota
	Byte
	Short
	Character
	Integer
	Long
	Float
	Double
)

var primitiveNames = [...]string{
	Boolean:   "boolean",
	Byte:      "byte",
	Short:     "short",
	Character: "char",
	Integer:   "int",
	Long:      "long",
	Float:     "float",
	Double:    "double",
}

func (k PrimitiveKind) String() string {
	if int(k) < len(primitiveNames) {
		return primitiveNames[k]
	}
	return "unknown"
}

// ValueType is the declared type of a field, parameter, return value or array item
type ValueType interface {
	String() string
	isValueType()
}

// Primitive is a non-reference value type
type Primitive struct {
	Kind PrimitiveKind
}

// Void is the return type of methods that return nothing
type Void struct{}

// Object is a reference to an instance of a class
type Object struct {
	ClassName string
}

// Array is a reference to an array of ItemType
type Array struct {
	ItemType ValueType
}

func (*Primitive) isValueType() {}
func (*Void) isValueType()      {}
func (*Object) isValueType()    {}
func (*Array) isValueType()     {}

func (p *Primitive) String() string { return p.Kind.String() }
func (*Void) String() string        { return "void" }
func (o *Object) String() string    { return o.ClassName }
func (a *Array) String() string     { return a.ItemType.String() + "[]" }

// Shared instances for the primitive types
var (
	BooleanType   ValueType = &Primitive{Kind: Boolean}
	ByteType      ValueType = &Primitive{Kind: Byte}
	ShortType     ValueType = &Primitive{Kind: Short}
	CharacterType ValueType = &Primitive{Kind: Character}
	IntType       ValueType = &Primitive{Kind: Integer}
	LongType      ValueType = &Primitive{Kind: Long}
	FloatType     ValueType = &Primitive{Kind: Float}
	DoubleType    ValueType = &Primitive{Kind: Double}
	VoidType      ValueType = &Void{}
)

// Well-known class names the lowering passes depend on
const (
	ObjectClass    = "java.lang.Object"
	ClassClass     = "java.lang.Class"
	StringClass    = "java.lang.String"
	ThrowableClass = "java.lang.Throwable"

	StructureClass = "interop.Structure"
	FunctionClass  = "interop.Function"
	AddressClass   = "interop.Address"

	ClassInitializerName = "<clinit>"
)

// ObjectOf returns the object type of the named class
func ObjectOf(className string) ValueType {
	return &Object{ClassName: className}
}

// ArrayOf returns the array type with the given item type
func ArrayOf(item ValueType) ValueType {
	return &Array{ItemType: item}
}

// Equal reports whether two value types denote the same type
func Equal(a, b ValueType) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// IsReference reports whether values of type t are heap references
func IsReference(t ValueType) bool {
	switch t.(type) {
	case *Object, *Array:
		return true
	}
	return false
}

// ParseValueType parses the textual form produced by ValueType.String
func ParseValueType(text string) ValueType {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, "[]") {
		return ArrayOf(ParseValueType(strings.TrimSuffix(text, "[]")))
	}
	if text == "void" {
		return VoidType
	}
	for kind, name := range primitiveNames {
		if name == text {
			return &Primitive{Kind: PrimitiveKind(kind)}
		}
	}
	return ObjectOf(text)
}
