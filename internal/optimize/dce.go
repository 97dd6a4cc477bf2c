// Package optimize holds the individual optimization passes, each
// implementing passmgr.Pass and driven by internal/analysis.
package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// DCE removes instructions whose result is unused and whose opcode is
// side-effect-free, then prunes any block unreachable in the CFG.
// Side-effectful opcodes (memory/storage stores, calls, logs,
// terminators, asserts) are never removed regardless of use count.
type DCE struct{ passmgr.FunctionPass }

func (DCE) Name() string        { return "dead-code-elimination" }
func (DCE) Description() string { return "removes unused pure instructions and unreachable blocks" }
func (DCE) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDFG}
}
func (DCE) Preserves() []passmgr.AnalysisKind { return nil }

func (DCE) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	cfg := a.CFG()
	reachable := cfg.Reachable()

	kept := fn.Blocks[:0]
	for _, blk := range fn.Blocks {
		if blk != fn.Entry && !reachable[blk.Label] {
			changed = true
			continue
		}
		kept = append(kept, blk)
	}
	fn.Blocks = kept

	dfg := a.DFG()
	for _, blk := range fn.Blocks {
		out := blk.Instructions[:0]
		for _, inst := range blk.Instructions {
			sig := ir.OpSignatures[inst.Op]
			if !sig.SideEffect && inst.Result != nil && dfg.IsUnused(inst.Result) {
				changed = true
				continue
			}
			out = append(out, inst)
		}
		blk.Instructions = out
	}
	return changed, nil
}
