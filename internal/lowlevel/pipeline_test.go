package lowlevel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gclower/internal/ir"
)

const pipelineSource = `
class I extends java.lang.Object clinit

method A#full(A, A[], int): A static {
$0:
  try java.lang.ArithmeticException => $2 joint @9 (@1, @6)
  initclass I
  @4 := get @1 A#next as A
  @5 := boundcheck @3 lower upper @2
  putelem @2[@5] := @4 as object
  put @4 A#next := @1 as A
  invoke virtual A#run(): void on @4
  @6 := new A
  put @6 A#next := @4 as A
  initclass I
  if @3 eq then $1 else $3
$1:
  return @6
$2:
  exception @7
  @8 := get @1 A#next as A
  return @8
$3:
  return @1
}

method A#fallback(A, A): A static {
$0:
  try * => $1
  @3 := get @1 A#next as A
  invoke special A#run(): void
  return @3
$1:
  @4 := phi [$0: @2]
  return @4
}

method A#empty(): void static {
$0:
  return
}
`

func passNames(p *Pipeline) []string {
	var names []string
	for _, pass := range p.Passes() {
		names = append(names, pass.Name())
	}
	return names
}

func TestPipelineOrder(t *testing.T) {
	_, c := load(t, "")

	pipeline, err := NewPipeline(DefaultConfig(), c, NewCallSiteRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"nullcheck-insertion",
		"check-transformation",
		"clinit-elimination",
		"clinit-transformation",
		"write-barriers",
		"shadow-stack",
	}, passNames(pipeline))

	cfg := DefaultConfig()
	cfg.NullChecks = false
	cfg.ClassInitializers = false
	cfg.WriteBarriers = false
	pipeline, err = NewPipeline(cfg, c, NewCallSiteRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{"check-transformation", "clinit-transformation", "shadow-stack"}, passNames(pipeline))

	cfg.RootRuntime = "heap"
	_, err = NewPipeline(cfg, c, NewCallSiteRegistry())
	assert.Error(t, err)
}

func TestPipelineLowersEverything(t *testing.T) {
	methods, c := load(t, pipelineSource)
	cfg := DefaultConfig()
	cfg.Verify = true
	registry := NewCallSiteRegistry()
	pipeline, err := NewPipeline(cfg, c, registry)
	require.NoError(t, err)

	m := methods["full"]
	require.NoError(t, pipeline.Run(m))
	p := m.Program

	assert.Empty(t, collect[*ir.NullCheckInstruction](p))
	assert.Empty(t, collect[*ir.BoundCheckInstruction](p))
	assert.Empty(t, collect[*ir.RaiseInstruction](p))
	assert.Len(t, collect[*ir.InitClassInstruction](p), 1, "the dominated initialization is gone")
	assert.Len(t, invocationsOf(p, IsInitializedMethod), 1)
	assert.Len(t, invocationsOf(p, AllocStackMethod), 1)
	assert.Len(t, invocationsOf(p, ReleaseStackMethod), 1)
	assert.NotEmpty(t, invocationsOf(p, WriteBarrierMethod))
	assert.NotEmpty(t, registry.CallSites())
	for _, b := range p.Blocks() {
		assert.Empty(t, b.TryCatchBlocks)
	}

	require.NoError(t, pipeline.Run(methods["empty"]))
	assert.Empty(t, invocationsOf(methods["empty"].Program, AllocStackMethod))
}

func TestHandlerPhisSurviveSplitting(t *testing.T) {
	methods, c := load(t, pipelineSource)
	cfg := DefaultConfig()
	cfg.Verify = true
	pipeline, err := NewPipeline(cfg, c, NewCallSiteRegistry())
	require.NoError(t, err)

	m := methods["fallback"]
	require.NoError(t, pipeline.Run(m))
	p := m.Program

	handler := p.BlockAt(1)
	require.Len(t, handler.Phis, 1)
	phi := handler.Phis[0]
	preds := ir.Predecessors(p)[handler.Index]
	require.NotEmpty(t, preds)
	assert.Len(t, phi.Incomings, len(preds), "one incoming per dispatching block")
	for _, in := range phi.Incomings {
		assert.Equal(t, 2, in.Value.Index)
	}

	rooted := false
	for _, invoke := range invocationsOf(p, RootsShadowStack.RegisterGCRootMethod()) {
		rooted = rooted || invoke.Arguments[1].Index == 2
	}
	assert.True(t, rooted, "the value the handler receives is a GC root")
}

type panickingPass struct{}

func (panickingPass) Name() string { return "panics" }
func (panickingPass) Description() string { return "" }
func (panickingPass) Apply(*Method) (bool, error) {
	var b *ir.BasicBlock
	return len(b.Instructions) > 0, nil
}

type breakingPass struct{}

func (breakingPass) Name() string { return "breaks" }
func (breakingPass) Description() string { return "" }
func (breakingPass) Apply(m *Method) (bool, error) {
	entry := m.Program.Entry()
	entry.Instructions = entry.Instructions[:len(entry.Instructions)-1]
	return true, nil
}

type failingPass struct{ err error }

func (failingPass) Name() string { return "fails" }
func (failingPass) Description() string { return "" }
func (f failingPass) Apply(*Method) (bool, error) { return false, f.err }

func TestPipelineFailures(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name      string
		pass      Pass
		verify    bool
		message   string
		malformed bool
	}{
		{"panic", panickingPass{}, false, "malformed IR", true},
		{"verify", breakingPass{}, true, "verify after", true},
		{"error", failingPass{err: cause}, false, "boom", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			methods, _ := load(t, pipelineSource)
			pipeline := NewEmptyPipeline(Config{Verify: tt.verify})
			pipeline.AddPass(tt.pass)

			err := pipeline.Run(methods["full"])
			var methodErr *MethodError
			require.ErrorAs(t, err, &methodErr)
			assert.Equal(t, tt.pass.Name(), methodErr.Pass)
			assert.Equal(t, "A#full(A, A[], int): A", methodErr.Method.String())
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, tt.malformed, errors.Is(err, ErrMalformed))
		})
	}

	methods, _ := load(t, pipelineSource)
	pipeline := NewEmptyPipeline(Config{})
	pipeline.AddPass(failingPass{err: cause})
	failures := pipeline.RunAll([]*Method{methods["full"], methods["empty"]})
	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0], cause)
}

func TestShouldDump(t *testing.T) {
	m, _ := loadMethod(t, pipelineSource, "full")
	ref := m.Reader.Reference

	p := NewEmptyPipeline(Config{DumpMethod: "A#full"})
	assert.True(t, p.shouldDump("*", "write-barriers", ref))
	assert.True(t, p.shouldDump("write-barriers", "write-barriers", ref))
	assert.False(t, p.shouldDump("shadow-stack", "write-barriers", ref))
	assert.False(t, p.shouldDump("", "write-barriers", ref))

	p = NewEmptyPipeline(Config{DumpMethod: "A#other"})
	assert.False(t, p.shouldDump("*", "write-barriers", ref))
}
