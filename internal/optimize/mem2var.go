package optimize

import (
	"kansoc/internal/analysis"
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// Mem2Var promotes alloca/istore/iload slots to plain SSA values,
// inserting phi nodes at each slot's iterated dominance frontier
// (Cytron et al. 1991). Only slots whose address never escapes (never
// passed to anything but istore/iload on a constant slot operand) are
// eligible; anything else is left as memory and handled by
// LoadElimination/DeadStoreElimination instead.
type Mem2Var struct{ passmgr.FunctionPass }

func (Mem2Var) Name() string        { return "mem2var" }
func (Mem2Var) Description() string { return "promotes non-escaping alloca slots to SSA values" }
func (Mem2Var) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators}
}
func (Mem2Var) Preserves() []passmgr.AnalysisKind { return nil }

func (Mem2Var) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	slots := promotableSlots(fn)
	if len(slots) == 0 {
		return false, nil
	}
	dom := a.Dominators()
	frontier := dom.Frontier()

	for slot, alloca := range slots {
		defBlocks := defBlocksFor(fn, slot)
		phiBlocks := iteratedFrontier(defBlocks, frontier)
		phis := make(map[string]*ir.Instruction)
		for _, label := range phiBlocks {
			blk := fn.BlockByLabel(label)
			result := &ir.Value{ID: nextValueID(fn), Type: alloca.Result.Type, Name: alloca.Result.Name}
			phi := &ir.Instruction{Op: ir.OpPhi, Result: result, Parent: blk}
			blk.Instructions = append([]*ir.Instruction{phi}, blk.Instructions...)
			phis[label] = phi
		}
		renameSlot(fn, slot, alloca.Result, phis, a.CFG())
		stripSlotMemOps(fn, slot)
	}
	return true, nil
}

// promotableSlots returns, for every alloca whose result is used only as
// the address operand of istore/iload (never passed elsewhere), that
// alloca instruction keyed by its result value's identity.
func promotableSlots(fn *ir.Function) map[*ir.Value]*ir.Instruction {
	allocas := make(map[*ir.Value]*ir.Instruction)
	escapes := make(map[*ir.Value]bool)
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.OpAlloca && inst.Result != nil {
				allocas[inst.Result] = inst
			}
			for i, op := range inst.Operands {
				v, ok := op.(*ir.Value)
				if !ok {
					continue
				}
				isAddrSlot := (inst.Op == ir.OpIStore || inst.Op == ir.OpILoad) && i == 0
				if !isAddrSlot {
					escapes[v] = true
				}
			}
		}
	}
	out := make(map[*ir.Value]*ir.Instruction)
	for v, inst := range allocas {
		if !escapes[v] {
			out[v] = inst
		}
	}
	return out
}

func defBlocksFor(fn *ir.Function, slot *ir.Value) map[string]bool {
	out := make(map[string]bool)
	for _, blk := range fn.Blocks {
		for _, inst := range blk.Instructions {
			if inst.Op == ir.OpIStore {
				if v, ok := inst.Operands[0].(*ir.Value); ok && v == slot {
					out[blk.Label] = true
				}
			}
		}
	}
	return out
}

func iteratedFrontier(defs map[string]bool, frontier map[string][]string) []string {
	worklist := make([]string, 0, len(defs))
	for d := range defs {
		worklist = append(worklist, d)
	}
	added := make(map[string]bool)
	var out []string
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]
		for _, f := range frontier[b] {
			if !added[f] {
				added[f] = true
				out = append(out, f)
				worklist = append(worklist, f)
			}
		}
	}
	return out
}

// renameSlot walks the dominator tree (approximated here by RPO plus
// per-block current-value tracking fed by real predecessors, since
// full dominator-tree-order renaming needs child lists we don't
// maintain separately) rewriting every iload of slot to the value live
// at that program point, and filling phi operands from predecessors.
func renameSlot(fn *ir.Function, slot *ir.Value, initial *ir.Value, phis map[string]*ir.Instruction, cfg *analysis.CFG) {
	current := make(map[string]*ir.Value)
	order := cfg.ReversePostorder()
	for _, label := range order {
		blk := fn.BlockByLabel(label)
		if blk == nil {
			continue
		}
		var live *ir.Value
		if phi, ok := phis[label]; ok {
			live = phi.Result
		} else {
			preds := cfg.Predecessors(label)
			if len(preds) == 1 {
				live = current[preds[0]]
			}
		}
		for _, inst := range blk.Instructions {
			if inst.Op == ir.OpIStore {
				if v, ok := inst.Operands[0].(*ir.Value); ok && v == slot {
					if val, ok := inst.Operands[1].(*ir.Value); ok {
						live = val
					}
					inst.Op = ir.OpNop
					inst.Operands = nil
				}
				continue
			}
			if inst.Op == ir.OpILoad {
				if v, ok := inst.Operands[0].(*ir.Value); ok && v == slot && live != nil {
					replaceValueEverywhere(fn, inst.Result, live)
				}
			}
		}
		current[label] = live
	}
	for label, phi := range phis {
		for _, pred := range cfg.Predecessors(label) {
			val := current[pred]
			if val == nil {
				val = initial
			}
			phi.Operands = append(phi.Operands, val)
			phi.PhiLabels = append(phi.PhiLabels, pred)
		}
	}
}

// replaceValueEverywhere is a blunt, whole-function rewrite used only by
// mem2var (which runs before a fresh DFG would otherwise be available
// mid-pass); later passes use the DFG-mediated ReplaceAllUsesWith.
func replaceValueEverywhere(fn *ir.Function, old, new *ir.Value) {
	for _, blk := range fn.Blocks {
		for _, inst := range blk.AllInstructions() {
			for i, op := range inst.Operands {
				if v, ok := op.(*ir.Value); ok && v == old {
					inst.Operands[i] = new
				}
			}
		}
	}
}

func stripSlotMemOps(fn *ir.Function, slot *ir.Value) {
	for _, blk := range fn.Blocks {
		out := blk.Instructions[:0]
		for _, inst := range blk.Instructions {
			if inst.Op == ir.OpNop && inst.Operands == nil {
				continue
			}
			if inst.Op == ir.OpILoad {
				if v, ok := inst.Operands[0].(*ir.Value); ok && v == slot {
					continue
				}
			}
			if inst.Op == ir.OpAlloca && inst.Result == slot {
				continue
			}
			out = append(out, inst)
		}
		blk.Instructions = out
	}
}

func nextValueID(fn *ir.Function) int {
	max := 0
	for _, blk := range fn.Blocks {
		for _, inst := range blk.AllInstructions() {
			if inst.Result != nil && inst.Result.ID > max {
				max = inst.Result.ID
			}
		}
	}
	return max + 1
}
