package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
)

const clinitSource = `
class I extends java.lang.Object clinit
class J extends I clinit
class S extends java.lang.Object staticinit clinit
class N extends java.lang.Object

method A#straight(): void static {
$0:
  initclass J
  initclass I
  initclass S
  initclass N
  initclass P
  initclass J
  return
}

method J#own(): void static {
$0:
  initclass I
  initclass J
  return
}

method A#branches(int): void static {
$0:
  if @1 eq then $1 else $2
$1:
  initclass I
  jump $3
$2:
  jump $3
$3:
  initclass I
  initclass I
  return
}

method A#guarded(A): void static {
$0:
  try * => $1
  initclass I
  invoke special A#run(): void
  return
$1:
  initclass I
  return
}
`

func initializedClasses(p *ir.Program) []string {
	var names []string
	for _, init := range collect[*ir.InitClassInstruction](p) {
		names = append(names, init.ClassName)
	}
	return names
}

func TestClassInitializerElimination(t *testing.T) {
	methods, c := load(t, clinitSource)
	pass := NewClassInitializerEliminator(c)

	tests := []struct {
		method string
		want   []string
	}{
		{"straight", []string{"J"}},
		{"own", nil},
		{"branches", []string{"I", "I"}},
		{"guarded", []string{"I", "I"}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			m := methods[tt.method]
			_, err := pass.Apply(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, initializedClasses(m.Program))
			assert.NoError(t, ir.Verify(m.Program))
		})
	}
}

func TestClassInitializerTransformation(t *testing.T) {
	methods, c := load(t, clinitSource)
	m := methods["branches"]
	_, err := NewClassInitializerEliminator(c).Apply(m)
	require.NoError(t, err)

	changed, err := NewClassInitializerTransformer().Apply(m)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, ir.Verify(m.Program))

	inits := collect[*ir.InitClassInstruction](m.Program)
	require.Len(t, inits, 2)
	assert.Len(t, invocationsOf(m.Program, IsInitializedMethod), 2)

	preds := ir.Predecessors(m.Program)
	for _, init := range inits {
		b := blockOf(m.Program, init)
		require.Len(t, preds[b.Index], 1, "only the guard enters the init block")
		guard := preds[b.Index][0]
		branch, ok := guard.Terminator().(*ir.BranchingInstruction)
		require.True(t, ok)
		assert.Equal(t, ir.CondNotEqual, branch.Condition)
		assert.Same(t, b, branch.Alternative)

		jump, ok := b.Terminator().(*ir.JumpInstruction)
		require.True(t, ok)
		assert.Same(t, branch.Consequent, jump.Target, "both paths rejoin")
	}
}

func TestClassInitializerGuardKeepsHandlers(t *testing.T) {
	m, _ := loadMethod(t, clinitSource, "guarded")

	_, err := NewClassInitializerTransformer().Apply(m)
	require.NoError(t, err)
	require.NoError(t, ir.Verify(m.Program))

	init := collect[*ir.InitClassInstruction](m.Program)[0]
	b := blockOf(m.Program, init)
	require.Len(t, b.TryCatchBlocks, 1)
	assert.Same(t, m.Program.BlockAt(1), b.TryCatchBlocks[0].Handler)
}
