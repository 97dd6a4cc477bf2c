package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// BranchOptimization rewrites jnz on a known-constant condition into an
// unconditional jmp, and collapses jnz whose both targets are identical
// into jmp. SCCP already prunes the dead side's block reachability; this
// pass turns the now-redundant conditional into the simpler terminator
// so SimplifyCFG can merge straight-line fallthroughs.
type BranchOptimization struct{ passmgr.FunctionPass }

func (BranchOptimization) Name() string { return "branch-optimization" }
func (BranchOptimization) Description() string {
	return "collapses constant-condition or same-target jnz into jmp"
}
func (BranchOptimization) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG}
}
func (BranchOptimization) Preserves() []passmgr.AnalysisKind { return nil }

func (BranchOptimization) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks {
		t := blk.Terminator
		if t == nil || t.Op != ir.OpJnz {
			continue
		}
		trueLabel, trueOK := t.Operands[1].(ir.Label)
		falseLabel, falseOK := t.Operands[2].(ir.Label)
		if trueOK && falseOK && trueLabel.Name == falseLabel.Name {
			blk.Terminator = mustJmp(t.ID, trueLabel)
			changed = true
			continue
		}
		if lit, ok := t.Operands[0].(ir.Literal); ok && lit.Value != nil {
			target := falseLabel
			if !lit.Value.IsZero() {
				target = trueLabel
			}
			blk.Terminator = mustJmp(t.ID, target)
			changed = true
		}
	}
	return changed, nil
}

func mustJmp(id int, target ir.Label) *ir.Instruction {
	inst, err := ir.NewInstruction(id, ir.OpJmp, []ir.Operand{target}, nil)
	if err != nil {
		panic(err) // unreachable: jmp's single-label arity is fixed and always satisfied here
	}
	return inst
}
