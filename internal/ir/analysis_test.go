package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
	"gclower/internal/parser"
)

const diamondSource = `
class A extends java.lang.Object

method A#diamond(A, int): A static {
$0:
  try * => $4
  @3 := new A
  if @2 eq then $1 else $2
$1:
  @4 := get @1 A#next as A
  jump $3
$2:
  @5 := null
  jump $3
$3:
  @6 := phi [$1: @4, $2: @5]
  return @6
$4:
  exception @7
  return @3
$5:
  return @1
}
`

const handlerPhiSource = `
class A extends java.lang.Object

method A#fallback(A, A): A static {
$0:
  try * => $1
  @3 := new A
  return @3
$1:
  @4 := phi [$0: @2]
  return @4
}
`

func parseMethod(t *testing.T, source string) *parser.MethodBody {
	t.Helper()
	unit, err := parser.ParseSource("test.ir", source)
	require.NoError(t, err)
	require.NotEmpty(t, unit.Methods)
	return unit.Methods[0]
}

func TestDominators(t *testing.T) {
	p := parseMethod(t, diamondSource).Program
	dom := ir.ComputeDominators(p)

	assert.Equal(t, 0, dom.ImmediateDominator(1))
	assert.Equal(t, 0, dom.ImmediateDominator(3), "neither branch dominates the join")
	assert.Equal(t, 0, dom.ImmediateDominator(4), "handlers hang off the protected block")
	assert.True(t, dom.Dominates(0, 3))
	assert.True(t, dom.Dominates(3, 3))
	assert.False(t, dom.Dominates(1, 3))
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, dom.Children(0))

	assert.False(t, dom.IsReachable(5))
	assert.NotContains(t, dom.ReversePostOrder(), 5)
	assert.Equal(t, 0, ir.ReversePostOrder(p)[0])
}

func TestReversePostOrderVisitsPredecessorsFirst(t *testing.T) {
	p := parseMethod(t, diamondSource).Program
	order := ir.ReversePostOrder(p)

	position := make(map[int]int)
	for i, b := range order {
		position[b] = i
	}
	assert.Less(t, position[1], position[3])
	assert.Less(t, position[2], position[3])
}

func TestLiveness(t *testing.T) {
	p := parseMethod(t, diamondSource).Program
	live := ir.AnalyzeLiveness(p)

	assert.True(t, live.IsLiveIn(1, 1), "@1 is read in $1")
	assert.False(t, live.IsLiveIn(2, 1))
	assert.True(t, live.LiveOut(1).Test(4), "phi inputs are live out of their source")
	assert.False(t, live.LiveOut(2).Test(4))
	assert.False(t, live.IsLiveIn(3, 6), "phi receivers are defined on entry")
	assert.True(t, live.ExceptionalLiveOut(0).Test(3), "the handler reads @3")
	assert.True(t, live.LiveOut(0).Test(3), "exceptional liveness is part of live-out")
}

func TestLivenessThroughHandlerPhis(t *testing.T) {
	p := parseMethod(t, handlerPhiSource).Program
	live := ir.AnalyzeLiveness(p)

	assert.True(t, live.ExceptionalLiveOut(0).Test(2), "@2 flows into the handler phi")
	assert.True(t, live.LiveOut(0).Test(2))
	assert.True(t, live.IsLiveIn(0, 2))
	assert.False(t, live.IsLiveIn(1, 2), "phi inputs are not live in the handler itself")
}

func TestInferTypes(t *testing.T) {
	body := parseMethod(t, diamondSource)
	types := ir.InferTypes(body.Program, body.Method.Reference, body.Method.IsStatic())

	assert.True(t, types[1].IsReference())
	assert.False(t, types[2].IsReference())
	assert.True(t, types[3].IsReference())
	assert.True(t, types[5].IsReference(), "null is a reference")
	assert.True(t, types[6].IsReference(), "phis take the type of their inputs")
	assert.True(t, types[7].IsReference())
}
