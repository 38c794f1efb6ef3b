package lowlevel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
)

const ehSource = `
method A#eh(A): int static {
$0:
  try java.lang.ArithmeticException => $1 joint @5 (@2, @3)
  @2 := const int 1
  invoke special A#run(): void at "A.java" 10
  @3 := const int 2
  invoke special A#run(): void at "A.java" 11
  return @3
$1:
  exception @4
  return @5
}

method A#rethrow(A): void static {
$0:
  try * => $1
  try java.lang.Error => $2
  throw @1
$1:
  exception @3
  return
$2:
  return
}

method A#latest(A, int): int static {
$0:
  try * => $3 joint @9 (@4, @3)
  @3 := const int 1
  jump $1
$1:
  try * => $3 joint @9 (@4, @3)
  @4 := const int 2
  jump $2
$2:
  try * => $3 joint @9 (@4, @3)
  invoke special A#run(): void
  return @4
$3:
  return @9
}

method A#plain(): void static {
$0:
  invoke special A#run(): void
  invoke special A#peek(): void
  return
}
`

// dispatches returns the handler-id switches in block order
func dispatches(p *ir.Program) []*ir.SwitchInstruction {
	return collect[*ir.SwitchInstruction](p)
}

func switchTarget(s *ir.SwitchInstruction, id int) *ir.BasicBlock {
	for _, entry := range s.Entries {
		if int(entry.Condition) == id {
			return entry.Target
		}
	}
	return nil
}

func lowerExceptions(t *testing.T, name string) (*Method, *CallSiteRegistry) {
	t.Helper()
	m, c := loadMethod(t, ehSource, name)
	registry := NewCallSiteRegistry()
	NewExceptionHandlingContributor(c, registry).Contribute(m)
	require.NoError(t, ir.Verify(m.Program))
	return m, registry
}

func TestExceptionDispatch(t *testing.T) {
	m, registry := lowerExceptions(t, "eh")
	p := m.Program
	handler := p.BlockAt(1)

	for _, b := range p.Blocks() {
		assert.Empty(t, b.TryCatchBlocks, "%s keeps its handler scopes", b)
		assert.Nil(t, b.ExceptionVariable)
	}
	catch := invocationsOf(p, CatchExceptionMethod)
	require.Len(t, catch, 1)
	assert.Same(t, catch[0], handler.Instructions[0])
	assert.Equal(t, 4, catch[0].Receiver.Index)

	sites := registry.CallSites()
	require.Len(t, sites, 2)
	switches := dispatches(p)
	require.Len(t, switches, 2)

	for i, site := range sites {
		require.Len(t, site.Handlers, 1)
		assert.Equal(t, "java.lang.ArithmeticException", site.Handlers[0].ClassName)
		require.Len(t, site.Locations, 1)
		assert.Equal(t, CallSiteLocation{FileName: "A.java", ClassName: "A", MethodName: "eh", LineNumber: 10 + i},
			site.Locations[0])

		s := switches[i]
		assert.Same(t, handler, switchTarget(s, site.Handlers[0].ID), "every handler id dispatches to its handler")
		next := switchTarget(s, site.ID)
		require.NotNil(t, next, "the call-site id continues normally")
		assert.NotSame(t, handler, next)

		uncaught, ok := s.DefaultTarget.Terminator().(*ir.ExitInstruction)
		require.True(t, ok, "uncaught exceptions leave the method")
		assert.NotNil(t, uncaught.ValueToReturn)
	}
	assert.Same(t, switches[0].DefaultTarget, switches[1].DefaultTarget)
}

func TestExceptionIDsAreUnique(t *testing.T) {
	methods, c := load(t, ehSource)
	registry := NewCallSiteRegistry()
	eh := NewExceptionHandlingContributor(c, registry)
	for _, name := range []string{"eh", "rethrow", "plain"} {
		eh.Contribute(methods[name])
	}

	seen := make(map[int]bool)
	for _, site := range registry.CallSites() {
		assert.False(t, seen[site.ID], "id %d reused", site.ID)
		seen[site.ID] = true
		for _, h := range site.Handlers {
			assert.False(t, seen[h.ID], "id %d reused", h.ID)
			seen[h.ID] = true
		}
	}
	assert.Len(t, registry.CallSites(), 4)
}

func TestJointsBecomePhis(t *testing.T) {
	m, _ := lowerExceptions(t, "eh")
	handler := m.Program.BlockAt(1)

	require.Len(t, handler.Phis, 1)
	phi := handler.Phis[0]
	assert.Equal(t, 5, phi.Receiver.Index)

	var values []int
	for _, in := range phi.Incomings {
		values = append(values, in.Value.Index)
	}
	assert.ElementsMatch(t, []int{2, 3}, values, "each call site passes the value current at that point")
}

func TestRaiseWithCatchAll(t *testing.T) {
	m, registry := lowerExceptions(t, "rethrow")
	p := m.Program

	sites := registry.CallSites()
	require.Len(t, sites, 1)
	site := sites[0]
	require.Len(t, site.Handlers, 1, "handlers after a catch-all are unreachable")
	assert.True(t, site.Handlers[0].IsCatchAll())
	assert.Equal(t, -1, site.Locations[0].LineNumber)

	assert.Empty(t, collect[*ir.RaiseInstruction](p))
	throw := invocationsOf(p, ThrowExceptionMethod)
	require.Len(t, throw, 1)
	assert.Equal(t, 1, throw[0].Arguments[0].Index)

	s := dispatches(p)[0]
	assert.Same(t, p.BlockAt(1), s.DefaultTarget, "the catch-all handler is the default")
	assert.Same(t, p.BlockAt(1), switchTarget(s, site.Handlers[0].ID))
	_, ok := switchTarget(s, site.ID).Terminator().(*ir.ExitInstruction)
	assert.True(t, ok)
}

func TestCallSitesOutsideTryAreRegistered(t *testing.T) {
	m, registry := lowerExceptions(t, "plain")

	sites := registry.CallSites()
	require.Len(t, sites, 1, "unmanaged calls are not call sites")
	assert.Empty(t, sites[0].Handlers)
	assert.Len(t, invocationsOf(m.Program, RegisterCallSiteMethod), 1)
	assert.Len(t, invocationsOf(m.Program, GetExceptionHandlerIDMethod), 1)

	s := dispatches(m.Program)[0]
	assert.Len(t, s.Entries, 1)
}

func TestJointTakesLatestDefinition(t *testing.T) {
	m, _ := lowerExceptions(t, "latest")
	handler := m.Program.BlockAt(3)

	require.Len(t, handler.Phis, 1)
	phi := handler.Phis[0]
	require.Len(t, phi.Incomings, 1)
	assert.Same(t, m.Program.BlockAt(2), phi.Incomings[0].Source)
	assert.Equal(t, 4, phi.Incomings[0].Value.Index, "@4 is defined after @3 on every path")
}

func TestCatchAllNeedsNoUncaughtBlock(t *testing.T) {
	m, _ := lowerExceptions(t, "latest")
	p := m.Program

	s := dispatches(p)
	require.Len(t, s, 1)
	assert.Same(t, p.BlockAt(3), s[0].DefaultTarget)

	dom := ir.ComputeDominators(p)
	for _, b := range p.Blocks() {
		assert.True(t, dom.IsReachable(b.Index), "%s is dead", b)
	}
}
