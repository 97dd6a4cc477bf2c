package analysis

import "kansoc/internal/ir"

// DFG is the def/use chain analysis: for every value, which instruction
// defines it and which instructions (by operand index) use it. The
// bookkeeping is rebuilt per pass invocation so a rewrite only has to
// update instructions, never a value's own back-pointers.
type DFG struct {
	def  map[*ir.Value]*ir.Instruction
	uses map[*ir.Value][]Use
}

// Use identifies one operand slot referencing a value.
type Use struct {
	Inst  *ir.Instruction
	Index int
}

func BuildDFG(fn *ir.Function) *DFG {
	d := &DFG{def: make(map[*ir.Value]*ir.Instruction), uses: make(map[*ir.Value][]Use)}
	for _, blk := range fn.Blocks {
		for _, inst := range blk.AllInstructions() {
			if inst.Result != nil {
				d.def[inst.Result] = inst
			}
			for idx, op := range inst.Operands {
				if v, ok := op.(*ir.Value); ok {
					d.uses[v] = append(d.uses[v], Use{Inst: inst, Index: idx})
				}
			}
		}
	}
	return d
}

func (d *DFG) Def(v *ir.Value) *ir.Instruction { return d.def[v] }
func (d *DFG) Uses(v *ir.Value) []Use          { return d.uses[v] }
func (d *DFG) IsUnused(v *ir.Value) bool       { return len(d.uses[v]) == 0 }

// ReplaceAllUsesWith rewrites every recorded use of old to new in place
// and updates the DFG's own bookkeeping, the operation CSE/SCCP/constant
// folding all reduce to.
func (d *DFG) ReplaceAllUsesWith(old, new *ir.Value) {
	for _, use := range d.uses[old] {
		use.Inst.Operands[use.Index] = new
	}
	d.uses[new] = append(d.uses[new], d.uses[old]...)
	delete(d.uses, old)
}
