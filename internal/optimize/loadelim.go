package optimize

import (
	"kansoc/internal/analysis"
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// LoadElimination forwards a load's result from the most recent store
// (or load) to the same address within a block, removing the redundant
// read entirely (store-to-load and load-to-load forwarding). Like
// DeadStoreElimination, any side-effectful instruction with unknown
// aliasing invalidates every tracked address.
type LoadElimination struct{ passmgr.FunctionPass }

func (LoadElimination) Name() string { return "load-elimination" }
func (LoadElimination) Description() string {
	return "forwards loads from the most recent store or load to the same address"
}
func (LoadElimination) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDFG}
}
func (LoadElimination) Preserves() []passmgr.AnalysisKind { return nil }

func (LoadElimination) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	dfg := a.DFG()
	for _, blk := range fn.Blocks {
		known := make(map[ir.Opcode]map[string]ir.Operand)
		for _, inst := range blk.Instructions {
			switch {
			case isLoadOp(inst.Op):
				addrKey := inst.Operands[0].String()
				if m, ok := known[inst.Op]; ok {
					if val, ok := m[addrKey]; ok {
						dfgReplace(dfg, inst.Result, val)
						changed = true
						continue
					}
				} else {
					known[inst.Op] = make(map[string]ir.Operand)
				}
				known[inst.Op][inst.Operands[0].String()] = inst.Result
			case storeOps[inst.Op] != ir.OpInvalidOpcode && isStoreOp(inst.Op):
				loadOp := storeOps[inst.Op]
				if known[loadOp] == nil {
					known[loadOp] = make(map[string]ir.Operand)
				}
				known[loadOp][inst.Operands[0].String()] = inst.Operands[1]
			case ir.OpSignatures[inst.Op].SideEffect:
				known = make(map[ir.Opcode]map[string]ir.Operand)
			}
		}
	}
	if changed {
		// forwarded loads are now unused pure instructions; DCE (which
		// always runs after this pass in the default pipeline) sweeps
		// them away. We don't remove them here to keep this pass a pure
		// forwarding step with one responsibility.
	}
	return changed, nil
}

func isStoreOp(op ir.Opcode) bool {
	_, ok := storeOps[op]
	return ok
}

// dfgReplace rewrites every use of a forwarded load's result with the
// value it was forwarded from, handling both the *ir.Value and the
// Literal/constant case uniformly.
func dfgReplace(dfg *analysis.DFG, old *ir.Value, new ir.Operand) {
	if old == nil {
		return
	}
	for _, use := range dfg.Uses(old) {
		use.Inst.Operands[use.Index] = new
	}
}
