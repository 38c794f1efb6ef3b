package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
	"gclower/internal/parser"
	"gclower/internal/types"
)

const baseClasses = `
class A extends java.lang.Object {
  declare run(): void;
  declare peek(): void unmanaged;
}
class P extends interop.Structure structure
`

// load parses a unit written on top of baseClasses and returns its methods
// keyed by name
func load(t *testing.T, source string) (map[string]*Method, *Characteristics) {
	t.Helper()
	unit, err := parser.ParseSource("test.ir", baseClasses+source)
	require.NoError(t, err)

	methods := make(map[string]*Method)
	for _, body := range unit.Methods {
		methods[body.Method.Reference.Name] = &Method{Reader: body.Method, Program: body.Program}
	}
	return methods, NewCharacteristics(WithRuntime(unit.Classes))
}

func loadMethod(t *testing.T, source, name string) (*Method, *Characteristics) {
	t.Helper()
	methods, c := load(t, source)
	m, ok := methods[name]
	require.True(t, ok, "method %s not found", name)
	return m, c
}

// collect returns every instruction of type T in block order
func collect[T ir.Instruction](p *ir.Program) []T {
	var result []T
	for _, b := range p.Blocks() {
		for _, insn := range b.Instructions {
			if typed, ok := insn.(T); ok {
				result = append(result, typed)
			}
		}
	}
	return result
}

func invocationsOf(p *ir.Program, method types.MethodReference) []*ir.InvokeInstruction {
	var result []*ir.InvokeInstruction
	for _, invoke := range collect[*ir.InvokeInstruction](p) {
		if invoke.Method.Equal(method) {
			result = append(result, invoke)
		}
	}
	return result
}

func blockOf(p *ir.Program, insn ir.Instruction) *ir.BasicBlock {
	for _, b := range p.Blocks() {
		for _, candidate := range b.Instructions {
			if candidate == insn {
				return b
			}
		}
	}
	return nil
}
