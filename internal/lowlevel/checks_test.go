package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
)

const checkSource = `
method A#deref(A, A): A static {
$0:
  @3 := get @1 A#next as A
  put @1 A#next := @2 as A
  invoke virtual A#run(): void on @2
  return @3
}

method A#self(): A {
$0:
  @1 := get @0 A#next as A
  @2 := new A
  invoke special A#run(): void on @2
  return @1
}

method A#raw(P): int static {
$0:
  @2 := get @1 P#size as int
  invoke special A#peek(): void on @1
  return @2
}

method A#at(int[], int): int static {
$0:
  @3 := boundcheck @2 lower upper @1
  @4 := getelem @1[@3] as int
  return @4
}
`

func TestNullCheckInsertion(t *testing.T) {
	methods, c := load(t, checkSource)
	pass := NewNullCheckInsertion(c)

	m := methods["deref"]
	changed, err := pass.Apply(m)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, ir.Verify(m.Program))

	checks := collect[*ir.NullCheckInstruction](m.Program)
	require.Len(t, checks, 2, "@1 is checked once for both accesses")
	assert.Equal(t, 1, checks[0].Value.Index)
	assert.Equal(t, 2, checks[1].Value.Index)

	put := collect[*ir.PutFieldInstruction](m.Program)[0]
	assert.Same(t, checks[0].Receiver, put.Instance, "later uses read the checked copy")
	invoke := collect[*ir.InvokeInstruction](m.Program)[0]
	assert.Same(t, checks[1].Receiver, invoke.Instance)
}

func TestNullCheckSkipsKnownNonNull(t *testing.T) {
	methods, c := load(t, checkSource)
	pass := NewNullCheckInsertion(c)

	for _, name := range []string{"self", "raw"} {
		changed, err := pass.Apply(methods[name])
		require.NoError(t, err)
		assert.False(t, changed, name)
		assert.Empty(t, collect[*ir.NullCheckInstruction](methods[name].Program), name)
	}
}

func TestNullCheckLowering(t *testing.T) {
	methods, c := load(t, checkSource)
	m := methods["deref"]
	_, err := NewNullCheckInsertion(c).Apply(m)
	require.NoError(t, err)

	lowering := NewCheckTransformation()
	changed, err := lowering.Apply(m)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, ir.Verify(m.Program))

	assert.Empty(t, collect[*ir.NullCheckInstruction](m.Program))
	assert.Len(t, invocationsOf(m.Program, ThrowNullPointerMethod), 2)

	var nullBranches int
	for _, branch := range collect[*ir.BranchingInstruction](m.Program) {
		if branch.Condition == ir.CondNull {
			nullBranches++
			throw := branch.Consequent
			require.NotEmpty(t, throw.Instructions)
			assert.IsType(t, &ir.InvokeInstruction{}, throw.Instructions[0])
		}
	}
	assert.Equal(t, 2, nullBranches)

	changed, err = lowering.Apply(m)
	require.NoError(t, err)
	assert.False(t, changed, "lowering is idempotent")
}

func TestBoundCheckLowering(t *testing.T) {
	m, _ := loadMethod(t, checkSource, "at")

	changed, err := NewCheckTransformation().Apply(m)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NoError(t, ir.Verify(m.Program))

	assert.Empty(t, collect[*ir.BoundCheckInstruction](m.Program))
	assert.NotEmpty(t, invocationsOf(m.Program, ThrowIndexOutOfBoundMethod))
	require.Len(t, collect[*ir.ArrayLengthInstruction](m.Program), 1)

	var conditions []ir.BranchingCondition
	for _, branch := range collect[*ir.BranchingInstruction](m.Program) {
		conditions = append(conditions, branch.Condition)
	}
	assert.ElementsMatch(t, []ir.BranchingCondition{ir.CondLess, ir.CondGreaterOrEqual}, conditions)

	get := collect[*ir.GetElementInstruction](m.Program)[0]
	assign := blockOf(m.Program, get).Instructions[0].(*ir.AssignInstruction)
	assert.Equal(t, 2, assign.Assignee.Index, "the checked index is a copy of the original")
	assert.Same(t, assign.Receiver, get.Index)
}

func TestFakeReturnMatchesReturnType(t *testing.T) {
	m, _ := loadMethod(t, checkSource, "at")
	_, err := NewCheckTransformation().Apply(m)
	require.NoError(t, err)

	var fake *ir.BasicBlock
	for _, b := range m.Program.Blocks() {
		if len(b.Instructions) == 2 {
			if _, ok := b.Instructions[0].(*ir.IntegerConstantInstruction); ok {
				fake = b
			}
		}
	}
	require.NotNil(t, fake)
	exit, ok := fake.Terminator().(*ir.ExitInstruction)
	require.True(t, ok)
	assert.NotNil(t, exit.ValueToReturn)
}
