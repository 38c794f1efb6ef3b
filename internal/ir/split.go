package ir

// SplitBlock moves the instructions of b starting at index into a new block
// appended to the arena. Instructions before index stay in b, which is left
// without a terminator; the caller must end it. The new block inherits b's
// handler scopes, and phis of b's former successors are re-pointed at it.
func SplitBlock(p *Program, b *BasicBlock, index int) *BasicBlock {
	next := p.CreateBlock()
	next.Instructions = append([]Instruction(nil), b.Instructions[index:]...)
	b.Instructions = b.Instructions[:index:index]
	b.CopyTryCatchBlocks(next)

	for _, succ := range Successors(next) {
		RedirectIncomings(succ, b, next)
	}
	return next
}

// RedirectIncomings makes phis of target that receive from old receive from replacement
func RedirectIncomings(target, old, replacement *BasicBlock) {
	for _, phi := range target.Phis {
		for _, in := range phi.Incomings {
			if in.Source == old {
				in.Source = replacement
			}
		}
	}
}
