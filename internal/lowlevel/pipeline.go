package lowlevel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tliron/commonlog"

	"gclower/internal/ir"
	"gclower/internal/types"
)

var pipelineLog = commonlog.GetLogger("lowlevel.pipeline")

// ErrMalformed marks failures caused by IR that does not verify or that a
// pass could not make sense of
var ErrMalformed = errors.New("malformed IR")

// Method is the unit every pass transforms: one method body and its metadata
type Method struct {
	Reader  *types.MethodReader
	Program *ir.Program
}

// Pass is a single transformation of a method body
type Pass interface {
	Name() string
	Description() string
	Apply(m *Method) (bool, error) // reports whether the body changed
}

// Config controls which passes run and how the pipeline checks and dumps
// the IR between them
type Config struct {
	Verify     bool   `yaml:"verify"`      // verify IR before/after each pass
	DumpBefore string `yaml:"dump-before"` // dump IR before this pass ("*" for all)
	DumpAfter  string `yaml:"dump-after"`  // dump IR after this pass ("*" for all)
	DumpMethod string `yaml:"dump-method"` // restrict dumps to this method

	NullChecks        bool        `yaml:"null-checks"`
	ClassInitializers bool        `yaml:"class-initializers"`
	WriteBarriers     bool        `yaml:"write-barriers"`
	RootRuntime       RootRuntime `yaml:"root-runtime"`
}

// DefaultConfig enables every pass and verifies nothing
func DefaultConfig() Config {
	return Config{
		NullChecks:        true,
		ClassInitializers: true,
		WriteBarriers:     true,
		RootRuntime:       RootsShadowStack,
	}
}

// MethodError reports a method that could not be lowered
type MethodError struct {
	Method types.MethodReference
	Pass   string
	Err    error
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("compilation of %s failed in %s: %v", e.Method, e.Pass, e.Err)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

// Pipeline runs the lowering passes over methods in order
type Pipeline struct {
	passes []Pass
	config Config
}

// NewPipeline creates a pipeline with the passes cfg enables. Call-site ids
// are drawn from callSites, which is shared by every method of the unit.
func NewPipeline(cfg Config, c *Characteristics, callSites *CallSiteRegistry) (*Pipeline, error) {
	if !cfg.RootRuntime.Valid() {
		return nil, fmt.Errorf("unknown root runtime %q", cfg.RootRuntime)
	}
	if cfg.RootRuntime == "" {
		cfg.RootRuntime = RootsShadowStack
	}

	pipeline := &Pipeline{config: cfg}
	if cfg.NullChecks {
		pipeline.AddPass(NewNullCheckInsertion(c))
	}
	pipeline.AddPass(NewCheckTransformation())
	if cfg.ClassInitializers {
		pipeline.AddPass(NewClassInitializerEliminator(c))
	}
	pipeline.AddPass(NewClassInitializerTransformer())
	if cfg.WriteBarriers {
		pipeline.AddPass(NewWriteBarrierInsertion(c))
	}
	pipeline.AddPass(NewShadowStackTransformer(c, callSites, cfg.RootRuntime))
	return pipeline, nil
}

// NewEmptyPipeline creates a pipeline without passes
func NewEmptyPipeline(cfg Config) *Pipeline {
	return &Pipeline{config: cfg}
}

// AddPass appends a pass to the pipeline
func (p *Pipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in execution order
func (p *Pipeline) Passes() []Pass {
	return p.passes
}

// Run lowers one method. A failing pass or a verification failure aborts
// the method with a *MethodError.
func (p *Pipeline) Run(m *Method) error {
	ref := m.Reader.Reference
	pipelineLog.Infof("lowering %s", ref)

	for _, pass := range p.passes {
		if p.shouldDump(p.config.DumpBefore, pass.Name(), ref) {
			pipelineLog.Noticef("--- before %s (%s) ---\n%s", pass.Name(), ref, ir.Print(m.Program))
		}
		if p.config.Verify {
			if err := ir.Verify(m.Program); err != nil {
				return &MethodError{Method: ref, Pass: pass.Name(), Err: fmt.Errorf("%w: verify before: %v", ErrMalformed, err)}
			}
		}

		changed, err := apply(pass, m)
		if err != nil {
			return &MethodError{Method: ref, Pass: pass.Name(), Err: err}
		}
		pipelineLog.Debugf("%s: %s changed=%t", ref, pass.Name(), changed)

		if p.config.Verify {
			if err := ir.Verify(m.Program); err != nil {
				return &MethodError{Method: ref, Pass: pass.Name(), Err: fmt.Errorf("%w: verify after: %v", ErrMalformed, err)}
			}
		}
		if p.shouldDump(p.config.DumpAfter, pass.Name(), ref) {
			pipelineLog.Noticef("--- after %s (%s) ---\n%s", pass.Name(), ref, ir.Print(m.Program))
		}
	}
	return nil
}

// RunAll lowers every method and returns the failures. Methods that fail
// are left partially transformed and must not be emitted.
func (p *Pipeline) RunAll(methods []*Method) []*MethodError {
	var failures []*MethodError
	for _, m := range methods {
		if err := p.Run(m); err != nil {
			failures = append(failures, err.(*MethodError))
		}
	}
	return failures
}

// apply runs a pass and turns a panic on malformed IR into an error
func apply(pass Pass, m *Method) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	return pass.Apply(m)
}

func (p *Pipeline) shouldDump(pattern, name string, ref types.MethodReference) bool {
	if pattern != "*" && pattern != name {
		return false
	}
	filter := p.config.DumpMethod
	return filter == "" || filter == ref.String() || strings.HasPrefix(ref.String(), filter+"(")
}
