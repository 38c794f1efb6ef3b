package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodReference(t *testing.T) {
	ref := NewMethodReference("A", "m", ObjectOf("B"), ArrayOf(IntType), VoidType)

	assert.Equal(t, "m(B, int[]): void", ref.Descriptor())
	assert.Equal(t, "A#m(B, int[]): void", ref.String())
	assert.Equal(t, 2, ref.ParameterCount())
	assert.True(t, ref.Equal(NewMethodReference("A", "m", ObjectOf("B"), ArrayOf(IntType), VoidType)))
	assert.False(t, ref.Equal(NewMethodReference("A", "m", VoidType)))

	assert.Equal(t, "A#run(): void", NewMethodReference("A", "run").String())
	assert.True(t, NewMethodReference("A", ClassInitializerName).IsClassInitializer())
}

func TestParseValueType(t *testing.T) {
	for _, text := range []string{"int", "long", "void", "A", "java.lang.Object[]", "double[][]"} {
		assert.Equal(t, text, ParseValueType(text).String())
	}
	assert.True(t, IsReference(ParseValueType("A")))
	assert.True(t, IsReference(ParseValueType("int[]")))
	assert.False(t, IsReference(ParseValueType("int")))
	assert.True(t, Equal(ArrayOf(ObjectOf("A")), ParseValueType("A[]")))
}

func TestClassRegistry(t *testing.T) {
	registry := NewClassRegistry()
	a := NewClassReader("A", ObjectClass, TraitClassInit)
	a.AddMethod(&MethodReader{Reference: NewMethodReference("A", "run", VoidType), Traits: MethodUnmanaged})
	registry.AddClass(a)
	registry.AddClass(NewClassReader("B", "A", TraitNormal))

	assert.True(t, registry.IsKnown("A"))
	assert.False(t, registry.IsKnown("C"))
	require.NotNil(t, a.Method("run(): void"))
	assert.True(t, a.Method("run(): void").Traits.Has(MethodUnmanaged))
	assert.True(t, a.HasClassInitializer())
	assert.False(t, registry.Get("B").HasClassInitializer())

	names := []string{}
	for _, class := range registry.Classes() {
		names = append(names, class.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestCompositeSource(t *testing.T) {
	first := NewClassRegistry()
	first.AddClass(NewClassReader("A", ObjectClass, TraitStructure))
	second := NewClassRegistry()
	second.AddClass(NewClassReader("A", ObjectClass, TraitNormal))
	second.AddClass(NewClassReader("B", ObjectClass, TraitNormal))

	source := CompositeSource{first, nil, second}
	assert.True(t, source.Get("A").Traits.Has(TraitStructure), "earlier sources win")
	assert.NotNil(t, source.Get("B"))
	assert.Nil(t, source.Get("C"))
}

func TestClassTraits(t *testing.T) {
	traits := TraitStructure | TraitStaticInit
	assert.True(t, traits.Has(TraitStaticInit))
	assert.False(t, traits.Has(TraitFunction))

	trait, ok := ParseClassTrait("unmanaged")
	assert.True(t, ok)
	assert.Equal(t, TraitUnmanaged, trait)
	_, ok = ParseClassTrait("volatile")
	assert.False(t, ok)
}
