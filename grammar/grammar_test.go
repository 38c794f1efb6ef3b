package grammar_test

import (
	"testing"

	"gclower/grammar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
// Runtime-free sample
class A extends java.lang.Object clinit {
  declare foo(int, B[]): void;
  declare <clinit>(): void static;
}
class S extends interop.Structure structure

method A#m(B): int {
$0:
  @2 := get @1 A#f as B at "A.java" 3
  @3 := invoke virtual A#foo(int, B[]): void on @0 with @4, @5
  if @2 null then $1 else $2
$1:
  exception @6
  try java.lang.ArithmeticException => $3 joint @7 (@2, @3)
  try * => $4
  @8 := phi [$0: @2, $2: @3]
  @9 := const int -4
  switch @9 [1: $2, -2: $3] default $4
$2:
  return @9
}
`

func TestParseSample(t *testing.T) {
	file, err := grammar.ParseString("sample.ir", sample)
	require.NoError(t, err)
	require.Len(t, file.Elements, 3)

	class := file.Elements[0].Class
	require.NotNil(t, class)
	assert.Equal(t, "A", class.Name)
	assert.Equal(t, "java.lang.Object", class.Parent)
	assert.Equal(t, []string{"clinit"}, class.Traits)
	require.Len(t, class.Methods, 2)
	assert.Equal(t, "foo(int, B[]): void", class.Methods[0].Signature.String())
	assert.Equal(t, "<clinit>", class.Methods[1].Signature.Name)
	assert.Equal(t, []string{"static"}, class.Methods[1].Traits)

	structure := file.Elements[1].Class
	require.NotNil(t, structure)
	assert.Equal(t, []string{"structure"}, structure.Traits)
	assert.Empty(t, structure.Methods)

	method := file.Elements[2].Method
	require.NotNil(t, method)
	assert.Equal(t, "A#m(B): int", method.String())
	require.Len(t, method.Blocks, 3)

	entry := method.Blocks[0]
	assert.Equal(t, "$0", entry.Label)
	require.Len(t, entry.Statements, 3)
	get := entry.Statements[0]
	assert.Equal(t, "@2", get.Receiver)
	require.NotNil(t, get.Op.Get)
	assert.Equal(t, "A#f", get.Op.Get.Field.String())
	require.NotNil(t, get.Location)
	assert.Equal(t, "A.java", get.Location.File)
	assert.Equal(t, 3, get.Location.Line)

	invoke := entry.Statements[1].Op.Invoke
	require.NotNil(t, invoke)
	assert.Equal(t, "virtual", invoke.Kind)
	assert.Equal(t, "A#foo(int, B[]): void", invoke.Method.String())
	assert.Equal(t, "@0", invoke.Instance)
	assert.Equal(t, []string{"@4", "@5"}, invoke.Arguments)

	handler := method.Blocks[1]
	assert.Equal(t, "@6", handler.Exception)
	require.Len(t, handler.TryCatches, 2)
	assert.Equal(t, "java.lang.ArithmeticException", handler.TryCatches[0].ExceptionType)
	assert.Equal(t, "$3", handler.TryCatches[0].Handler)
	require.Len(t, handler.TryCatches[0].Joints, 1)
	assert.Equal(t, []string{"@2", "@3"}, handler.TryCatches[0].Joints[0].Sources)
	assert.Equal(t, "*", handler.TryCatches[1].ExceptionType)

	phi := handler.Statements[0]
	require.NotNil(t, phi.Phi)
	assert.Len(t, phi.Phi.Incomings, 2)
	assert.Equal(t, "-4", handler.Statements[1].Op.Const.Value)

	sw := handler.Statements[2].Op.Switch
	require.NotNil(t, sw)
	assert.Equal(t, -2, sw.Entries[1].Value)
	assert.Equal(t, "$4", sw.Default)

	ret := method.Blocks[2].Statements[0].Op.Return
	require.NotNil(t, ret)
	assert.Equal(t, "@9", ret.Value)
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := grammar.ParseString("bad.ir", "method A#m(): void {\n$0:\n  frobnicate @1\n}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.ir:3")
}
