package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// SimplifyCFG merges a block into its sole predecessor when that
// predecessor's only successor is this block (a pure fallthrough edge),
// and removes blocks with no instructions that just jmp onward by
// redirecting their sole predecessor straight to the final target.
type SimplifyCFG struct{ passmgr.FunctionPass }

func (SimplifyCFG) Name() string        { return "simplify-cfg" }
func (SimplifyCFG) Description() string { return "merges straight-line fallthrough blocks" }
func (SimplifyCFG) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG}
}
func (SimplifyCFG) Preserves() []passmgr.AnalysisKind { return nil }

func (SimplifyCFG) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	cfg := a.CFG()

	// Redirect jumps through empty "trampoline" blocks (single jmp,
	// no other instructions) to their final target.
	for _, blk := range fn.Blocks {
		if blk.Terminator != nil && blk.Terminator.Op == ir.OpJmp {
			redirectJumpsTo(fn, blk.Label, blk.Terminator.Operands[0].(ir.Label).Name, blk, len(blk.Instructions) == 0)
		}
	}

	// Merge a block into its unique predecessor when that predecessor's
	// only successor is this block.
	merged := true
	for merged {
		merged = false
		cfg = a.CFG()
		for _, blk := range fn.Blocks {
			preds := cfg.Predecessors(blk.Label)
			if len(preds) != 1 || blk == fn.Entry {
				continue
			}
			pred := fn.BlockByLabel(preds[0])
			if pred == nil || len(cfg.Successors(pred.Label)) != 1 {
				continue
			}
			pred.Instructions = append(pred.Instructions, blk.Instructions...)
			pred.Terminator = blk.Terminator
			removeBlock(fn, blk.Label)
			changed = true
			merged = true
			break
		}
	}
	return changed, nil
}

// redirectJumpsTo rewrites every jmp/jnz/djmp target equal to from into
// to, when from is an empty trampoline block. Leaves from itself intact;
// DCE removes it once it becomes unreachable.
func redirectJumpsTo(fn *ir.Function, from, to string, trampoline *ir.BasicBlock, isEmpty bool) {
	if !isEmpty {
		return
	}
	for _, blk := range fn.Blocks {
		if blk == trampoline || blk.Terminator == nil {
			continue
		}
		for i, op := range blk.Terminator.Operands {
			if lbl, ok := op.(ir.Label); ok && lbl.Name == from {
				blk.Terminator.Operands[i] = ir.Label{Name: to}
			}
		}
	}
}

func removeBlock(fn *ir.Function, label string) {
	out := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if b.Label != label {
			out = append(out, b)
		}
	}
	fn.Blocks = out
}
