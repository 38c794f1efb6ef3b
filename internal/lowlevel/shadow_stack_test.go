package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
)

const frameSource = `
method A#exits(A, int): A static {
$0:
  @3 := new A
  if @2 eq then $1 else $2
$1:
  invoke special A#run(): void
  return @3
$2:
  return @1
}

method A#spin(A): void static {
$0:
  invoke special A#run(): void
  jump $0
}

method A#leaf(A): A static {
$0:
  @2 := get @1 A#next as A
  return @2
}
`

func lowerFrames(t *testing.T, name string) (*Method, bool) {
	t.Helper()
	m, c := loadMethod(t, frameSource, name)
	changed, err := NewShadowStackTransformer(c, NewCallSiteRegistry(), RootsShadowStack).Apply(m)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(m.Program))
	return m, changed
}

func constantArgument(t *testing.T, p *ir.Program, invoke *ir.InvokeInstruction) int32 {
	t.Helper()
	require.Len(t, invoke.Arguments, 1)
	for _, c := range collect[*ir.IntegerConstantInstruction](p) {
		if c.Receiver == invoke.Arguments[0] {
			return c.Constant
		}
	}
	require.Fail(t, "argument is not an integer constant")
	return 0
}

func TestFrameIsBalanced(t *testing.T) {
	m, changed := lowerFrames(t, "exits")
	assert.True(t, changed)
	p := m.Program

	alloc := invocationsOf(p, AllocStackMethod)
	release := invocationsOf(p, ReleaseStackMethod)
	require.Len(t, alloc, 1)
	require.Len(t, release, 1)
	assert.Same(t, alloc[0], p.Entry().Instructions[1], "the frame is allocated first")
	assert.Equal(t, constantArgument(t, p, alloc[0]), constantArgument(t, p, release[0]))

	exits := collect[*ir.ExitInstruction](p)
	require.Len(t, exits, 1, "every path leaves through one exit")
	exitBlock := blockOf(p, exits[0])
	n := len(exitBlock.Instructions)
	assert.Same(t, release[0], exitBlock.Instructions[n-2], "the frame is released right before returning")

	require.Len(t, exitBlock.Phis, 1)
	assert.Same(t, exitBlock.Phis[0].Receiver, exits[0].ValueToReturn)
	assert.Len(t, exitBlock.Phis[0].Incomings, len(ir.Predecessors(p)[exitBlock.Index]))
}

func TestFrameEntryIsNotALoopHeader(t *testing.T) {
	m, changed := lowerFrames(t, "spin")
	assert.True(t, changed)
	p := m.Program

	assert.Empty(t, ir.Predecessors(p)[p.Entry().Index])
	alloc := invocationsOf(p, AllocStackMethod)
	require.Len(t, alloc, 1)
	assert.Same(t, p.Entry(), blockOf(p, alloc[0]))
	assert.Len(t, invocationsOf(p, ReleaseStackMethod), 1)
}

func TestLeafNeedsNoFrame(t *testing.T) {
	m, changed := lowerFrames(t, "leaf")
	assert.False(t, changed)
	assert.Empty(t, invocationsOf(m.Program, AllocStackMethod))
	assert.Empty(t, invocationsOf(m.Program, ReleaseStackMethod))
}
