package ir

// Receiver returns the variable an instruction defines, or nil
func Receiver(insn Instruction) *Variable {
	switch i := insn.(type) {
	case *NullConstantInstruction:
		return i.Receiver
	case *IntegerConstantInstruction:
		return i.Receiver
	case *LongConstantInstruction:
		return i.Receiver
	case *FloatConstantInstruction:
		return i.Receiver
	case *DoubleConstantInstruction:
		return i.Receiver
	case *StringConstantInstruction:
		return i.Receiver
	case *ClassConstantInstruction:
		return i.Receiver
	case *BinaryInstruction:
		return i.Receiver
	case *AssignInstruction:
		return i.Receiver
	case *CastInstruction:
		return i.Receiver
	case *CastNumberInstruction:
		return i.Receiver
	case *IsInstanceInstruction:
		return i.Receiver
	case *ConstructInstruction:
		return i.Receiver
	case *ConstructArrayInstruction:
		return i.Receiver
	case *GetFieldInstruction:
		return i.Receiver
	case *ArrayLengthInstruction:
		return i.Receiver
	case *CloneArrayInstruction:
		return i.Receiver
	case *UnwrapArrayInstruction:
		return i.Receiver
	case *GetElementInstruction:
		return i.Receiver
	case *InvokeInstruction:
		return i.Receiver
	case *NullCheckInstruction:
		return i.Receiver
	case *BoundCheckInstruction:
		return i.Receiver
	}
	return nil
}

// Uses returns the variables an instruction reads, in operand order
func Uses(insn Instruction) []*Variable {
	var vars []*Variable
	add := func(vs ...*Variable) {
		for _, v := range vs {
			if v != nil {
				vars = append(vars, v)
			}
		}
	}

	switch i := insn.(type) {
	case *BinaryInstruction:
		add(i.First, i.Second)
	case *AssignInstruction:
		add(i.Assignee)
	case *CastInstruction:
		add(i.Value)
	case *CastNumberInstruction:
		add(i.Value)
	case *IsInstanceInstruction:
		add(i.Value)
	case *BranchingInstruction:
		add(i.Operand)
	case *BinaryBranchingInstruction:
		add(i.First, i.Second)
	case *SwitchInstruction:
		add(i.Condition)
	case *ExitInstruction:
		add(i.ValueToReturn)
	case *RaiseInstruction:
		add(i.Exception)
	case *ConstructArrayInstruction:
		add(i.Size)
	case *GetFieldInstruction:
		add(i.Instance)
	case *PutFieldInstruction:
		add(i.Instance, i.Value)
	case *ArrayLengthInstruction:
		add(i.Array)
	case *CloneArrayInstruction:
		add(i.Array)
	case *UnwrapArrayInstruction:
		add(i.Array)
	case *GetElementInstruction:
		add(i.Array, i.Index)
	case *PutElementInstruction:
		add(i.Array, i.Index, i.Value)
	case *InvokeInstruction:
		add(i.Instance)
		add(i.Arguments...)
	case *NullCheckInstruction:
		add(i.Value)
	case *BoundCheckInstruction:
		add(i.Index, i.Array)
	case *MonitorEnterInstruction:
		add(i.ObjectRef)
	case *MonitorExitInstruction:
		add(i.ObjectRef)
	}
	return vars
}

// MapUses rewrites every operand of insn through f
func MapUses(insn Instruction, f func(*Variable) *Variable) {
	m := func(v *Variable) *Variable {
		if v == nil {
			return nil
		}
		return f(v)
	}

	switch i := insn.(type) {
	case *BinaryInstruction:
		i.First, i.Second = m(i.First), m(i.Second)
	case *AssignInstruction:
		i.Assignee = m(i.Assignee)
	case *CastInstruction:
		i.Value = m(i.Value)
	case *CastNumberInstruction:
		i.Value = m(i.Value)
	case *IsInstanceInstruction:
		i.Value = m(i.Value)
	case *BranchingInstruction:
		i.Operand = m(i.Operand)
	case *BinaryBranchingInstruction:
		i.First, i.Second = m(i.First), m(i.Second)
	case *SwitchInstruction:
		i.Condition = m(i.Condition)
	case *ExitInstruction:
		i.ValueToReturn = m(i.ValueToReturn)
	case *RaiseInstruction:
		i.Exception = m(i.Exception)
	case *ConstructArrayInstruction:
		i.Size = m(i.Size)
	case *GetFieldInstruction:
		i.Instance = m(i.Instance)
	case *PutFieldInstruction:
		i.Instance, i.Value = m(i.Instance), m(i.Value)
	case *ArrayLengthInstruction:
		i.Array = m(i.Array)
	case *CloneArrayInstruction:
		i.Array = m(i.Array)
	case *UnwrapArrayInstruction:
		i.Array = m(i.Array)
	case *GetElementInstruction:
		i.Array, i.Index = m(i.Array), m(i.Index)
	case *PutElementInstruction:
		i.Array, i.Index, i.Value = m(i.Array), m(i.Index), m(i.Value)
	case *InvokeInstruction:
		i.Instance = m(i.Instance)
		for j, arg := range i.Arguments {
			i.Arguments[j] = m(arg)
		}
	case *NullCheckInstruction:
		i.Value = m(i.Value)
	case *BoundCheckInstruction:
		i.Index, i.Array = m(i.Index), m(i.Array)
	case *MonitorEnterInstruction:
		i.ObjectRef = m(i.ObjectRef)
	case *MonitorExitInstruction:
		i.ObjectRef = m(i.ObjectRef)
	}
}

// IsTerminator reports whether insn transfers control out of its block
func IsTerminator(insn Instruction) bool {
	switch insn.(type) {
	case *JumpInstruction, *BranchingInstruction, *BinaryBranchingInstruction,
		*SwitchInstruction, *ExitInstruction, *RaiseInstruction:
		return true
	}
	return false
}

// Targets returns the blocks a terminator may transfer control to
func Targets(insn Instruction) []*BasicBlock {
	switch i := insn.(type) {
	case *JumpInstruction:
		return []*BasicBlock{i.Target}
	case *BranchingInstruction:
		return []*BasicBlock{i.Consequent, i.Alternative}
	case *BinaryBranchingInstruction:
		return []*BasicBlock{i.Consequent, i.Alternative}
	case *SwitchInstruction:
		targets := make([]*BasicBlock, 0, len(i.Entries)+1)
		for _, entry := range i.Entries {
			targets = append(targets, entry.Target)
		}
		return append(targets, i.DefaultTarget)
	}
	return nil
}

// ReplaceTarget redirects every edge of a terminator from old to replacement
func ReplaceTarget(insn Instruction, old, replacement *BasicBlock) {
	swap := func(b *BasicBlock) *BasicBlock {
		if b == old {
			return replacement
		}
		return b
	}

	switch i := insn.(type) {
	case *JumpInstruction:
		i.Target = swap(i.Target)
	case *BranchingInstruction:
		i.Consequent, i.Alternative = swap(i.Consequent), swap(i.Alternative)
	case *BinaryBranchingInstruction:
		i.Consequent, i.Alternative = swap(i.Consequent), swap(i.Alternative)
	case *SwitchInstruction:
		for _, entry := range i.Entries {
			entry.Target = swap(entry.Target)
		}
		i.DefaultTarget = swap(i.DefaultTarget)
	}
}

// Successors returns the distinct normal-flow successors of a block
func Successors(b *BasicBlock) []*BasicBlock {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	return uniqueBlocks(Targets(term))
}

// ExceptionalSuccessors returns the distinct handler blocks of a block
func ExceptionalSuccessors(b *BasicBlock) []*BasicBlock {
	handlers := make([]*BasicBlock, 0, len(b.TryCatchBlocks))
	for _, tc := range b.TryCatchBlocks {
		handlers = append(handlers, tc.Handler)
	}
	return uniqueBlocks(handlers)
}

// AllSuccessors returns normal and exceptional successors of a block
func AllSuccessors(b *BasicBlock) []*BasicBlock {
	return uniqueBlocks(append(Successors(b), ExceptionalSuccessors(b)...))
}

// Predecessors computes normal-flow predecessor lists indexed by block index
func Predecessors(p *Program) [][]*BasicBlock {
	preds := make([][]*BasicBlock, p.BlockCount())
	for _, b := range p.Blocks() {
		for _, succ := range Successors(b) {
			preds[succ.Index] = append(preds[succ.Index], b)
		}
	}
	return preds
}

// ExceptionalEntries reports, per block, whether some block names it as a handler
func ExceptionalEntries(p *Program) []bool {
	entries := make([]bool, p.BlockCount())
	for _, b := range p.Blocks() {
		for _, tc := range b.TryCatchBlocks {
			entries[tc.Handler.Index] = true
		}
	}
	return entries
}

// DefinitionSites maps every variable index to the block that defines it,
// counting phis, instructions and handler exception variables. Unset entries
// are method parameters (or undefined variables).
func DefinitionSites(p *Program) []*BasicBlock {
	sites := make([]*BasicBlock, p.VariableCount())
	for _, b := range p.Blocks() {
		if b.ExceptionVariable != nil {
			sites[b.ExceptionVariable.Index] = b
		}
		for _, phi := range b.Phis {
			sites[phi.Receiver.Index] = b
		}
		for _, insn := range b.Instructions {
			if r := Receiver(insn); r != nil {
				sites[r.Index] = b
			}
		}
		for _, tc := range b.TryCatchBlocks {
			for _, joint := range tc.Joints {
				sites[joint.Receiver.Index] = tc.Handler
			}
		}
	}
	return sites
}

func uniqueBlocks(blocks []*BasicBlock) []*BasicBlock {
	seen := make(map[*BasicBlock]bool, len(blocks))
	result := blocks[:0:0]
	for _, b := range blocks {
		if b == nil || seen[b] {
			continue
		}
		seen[b] = true
		result = append(result, b)
	}
	return result
}
