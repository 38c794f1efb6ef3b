package ir

import (
	"fmt"
	"strings"
)

// Verify checks the structural integrity of a program.
// It returns an error describing all violations found, or nil if valid.
func Verify(p *Program) error {
	var errs []string

	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if p.BlockCount() == 0 {
		add("program has no blocks")
		return combineErrors(errs)
	}

	inProgram := func(b *BasicBlock) bool {
		return b != nil && b.Index >= 0 && b.Index < p.BlockCount() && p.BlockAt(b.Index) == b
	}
	knownVariable := func(v *Variable) bool {
		return v != nil && v.Index >= 0 && v.Index < p.VariableCount() && p.VariableAt(v.Index) == v
	}

	definitions := make([]int, p.VariableCount())
	define := func(b *BasicBlock, v *Variable) {
		if !knownVariable(v) {
			add("%s: defines %v which is not in the variable pool", b, v)
			return
		}
		definitions[v.Index]++
		if definitions[v.Index] == 2 {
			add("%s: %s is defined more than once", b, v)
		}
	}

	for i, b := range p.Blocks() {
		// 1. Arena index matches position
		if b.Index != i {
			add("block at position %d has index %d", i, b.Index)
		}

		// 2. Exactly one terminator, in last position
		if b.Terminator() == nil {
			add("%s: block is not terminated", b)
		}
		for j, insn := range b.Instructions {
			if insn == nil {
				add("%s: instruction %d is nil", b, j)
				continue
			}
			if j < len(b.Instructions)-1 && IsTerminator(insn) {
				add("%s: terminator at position %d is not the last instruction", b, j)
			}
			for _, used := range Uses(insn) {
				if !knownVariable(used) {
					add("%s: instruction %d uses %v which is not in the variable pool", b, j, used)
				}
			}
			if r := Receiver(insn); r != nil {
				define(b, r)
			}
		}

		// 3. Jump targets exist
		if term := b.Terminator(); term != nil {
			for _, target := range Targets(term) {
				if !inProgram(target) {
					add("%s: jumps to %v which is not in the program", b, target)
				}
			}
		}

		// 4. Handlers exist
		for _, tc := range b.TryCatchBlocks {
			if !inProgram(tc.Handler) {
				add("%s: handler %v is not in the program", b, tc.Handler)
				continue
			}
			for _, joint := range tc.Joints {
				for _, source := range joint.SourceVariables {
					if !knownVariable(source) {
						add("%s: joint source %v is not in the variable pool", b, source)
					}
				}
			}
		}

		if b.ExceptionVariable != nil {
			define(b, b.ExceptionVariable)
		}
		for _, phi := range b.Phis {
			define(b, phi.Receiver)
		}
	}

	// Joints define their receivers once per handler, however many scopes mention them.
	jointSeen := make(map[*Variable]bool)
	for _, b := range p.Blocks() {
		for _, tc := range b.TryCatchBlocks {
			for _, joint := range tc.Joints {
				if !jointSeen[joint.Receiver] {
					jointSeen[joint.Receiver] = true
					define(tc.Handler, joint.Receiver)
				}
			}
		}
	}

	// 5. Phi incomings come from real predecessors
	preds := make([]map[*BasicBlock]bool, p.BlockCount())
	for _, b := range p.Blocks() {
		if b.Terminator() == nil && len(b.TryCatchBlocks) == 0 {
			continue
		}
		for _, succ := range AllSuccessors(b) {
			if !inProgram(succ) {
				continue
			}
			if preds[succ.Index] == nil {
				preds[succ.Index] = make(map[*BasicBlock]bool)
			}
			preds[succ.Index][b] = true
		}
	}
	for _, b := range p.Blocks() {
		for _, phi := range b.Phis {
			for _, in := range phi.Incomings {
				if !knownVariable(in.Value) {
					add("%s: phi %s has incoming value %v which is not in the variable pool",
						b, phi.Receiver, in.Value)
				}
				if !preds[b.Index][in.Source] {
					add("%s: phi %s has incoming from %v which is not a predecessor",
						b, phi.Receiver, in.Source)
				}
			}
		}
	}

	// 6. One incoming per reachable predecessor
	dom := ComputeDominators(p)
	for _, b := range p.Blocks() {
		for _, phi := range b.Phis {
			count := make(map[*BasicBlock]int)
			for _, in := range phi.Incomings {
				count[in.Source]++
			}
			for pred := range preds[b.Index] {
				switch n := count[pred]; {
				case n > 1:
					add("%s: phi %s has %d incomings from %s", b, phi.Receiver, n, pred)
				case n == 0 && dom.IsReachable(pred.Index):
					add("%s: phi %s has no incoming from predecessor %s", b, phi.Receiver, pred)
				}
			}
		}
	}

	// 7. Definitions dominate uses
	if len(errs) == 0 {
		verifyDominance(p, dom, add)
	}

	return combineErrors(errs)
}

// verifyDominance checks that every variable read in a reachable block is
// defined earlier in that block or in a block dominating it. Phi inputs must
// be available at the end of their source block.
func verifyDominance(p *Program, dom *DominatorTree, add func(string, ...interface{})) {
	sites := DefinitionSites(p)
	position := make([]int, p.VariableCount())
	for _, b := range p.Blocks() {
		for i, insn := range b.Instructions {
			if r := Receiver(insn); r != nil {
				position[r.Index] = i
			}
		}
		if b.ExceptionVariable != nil {
			position[b.ExceptionVariable.Index] = -1
		}
		for _, phi := range b.Phis {
			position[phi.Receiver.Index] = -1
		}
	}
	for _, b := range p.Blocks() {
		for _, tc := range b.TryCatchBlocks {
			for _, joint := range tc.Joints {
				position[joint.Receiver.Index] = -1
			}
		}
	}

	// available reports whether v is defined before index of b
	available := func(v *Variable, b *BasicBlock, index int) bool {
		site := sites[v.Index]
		if site == nil {
			return true // parameter
		}
		if site == b {
			return position[v.Index] < index
		}
		return dom.Dominates(site.Index, b.Index)
	}

	for _, b := range p.Blocks() {
		if !dom.IsReachable(b.Index) {
			continue
		}
		for i, insn := range b.Instructions {
			for _, used := range Uses(insn) {
				if !available(used, b, i) {
					add("%s: %s is used at position %d before it is defined", b, used, i)
				}
			}
		}
		for _, phi := range b.Phis {
			for _, in := range phi.Incomings {
				if dom.IsReachable(in.Source.Index) && !available(in.Value, in.Source, len(in.Source.Instructions)) {
					add("%s: phi %s receives %s from %s where it is not defined", b, phi.Receiver, in.Value, in.Source)
				}
			}
		}
	}
}

func combineErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("IR verification failed:\n  %s", strings.Join(errs, "\n  "))
}
