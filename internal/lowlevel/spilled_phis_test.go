package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const phiSource = `
method A#phis(A, A, int): A static {
$0:
  jump $1
$1:
  @4 := phi [$0: @1, $2: @5]
  @6 := phi [$0: @2, $2: @6]
  if @3 eq then $2 else $3
$2:
  @5 := phi [$1: @4]
  jump $1
$3:
  @7 := phi [$1: @1]
  return @4
}
`

func TestSpilledPhis(t *testing.T) {
	m, _ := loadMethod(t, phiSource, "phis")
	p := m.Program

	sameSlot := func(int) int { return 0 }
	spilledParams := func(v, _ int) bool { return v == 1 || v == 2 }

	finder := NewSpilledPhisFinder(p, sameSlot, spilledParams)
	assert.False(t, finder.IsAutoSpilled(4), "@4 depends on itself through @5")
	assert.False(t, finder.IsAutoSpilled(5))
	assert.False(t, finder.IsAutoSpilled(6))
	assert.True(t, finder.IsAutoSpilled(7))
	assert.False(t, finder.IsAutoSpilled(3), "not a phi")

	finder = NewSpilledPhisFinder(p, func(v int) int {
		if v == 1 {
			return 1
		}
		return 0
	}, spilledParams)
	assert.False(t, finder.IsAutoSpilled(7), "the incoming value lives in another slot")

	finder = NewSpilledPhisFinder(p, sameSlot, func(v, _ int) bool { return v == 1 || v == 5 })
	assert.True(t, finder.IsAutoSpilled(4))
	assert.True(t, finder.IsAutoSpilled(5), "a spilled phi input makes the phi spilled")

	finder = NewSpilledPhisFinder(p, func(int) int { return -1 }, spilledParams)
	assert.False(t, finder.IsAutoSpilled(7), "values without a slot are never spilled")
}
