package optimize

import (
	"kansoc/internal/ir"
	"kansoc/internal/passmgr"
)

// DeadStoreElimination removes a store (mstore/sstore/tstore) when the
// location is overwritten by a later store to the same address with no
// intervening load, call, or other store to a location that might alias
// it. Conservative: any instruction with an unknown-address effect
// (calls, mcopy, dloadbytes) invalidates every pending store it could
// plausibly alias.
type DeadStoreElimination struct{ passmgr.FunctionPass }

func (DeadStoreElimination) Name() string { return "dead-store-elimination" }
func (DeadStoreElimination) Description() string {
	return "removes stores overwritten before being read, with no aliasing hazard in between"
}
func (DeadStoreElimination) Requires() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG}
}
func (DeadStoreElimination) Preserves() []passmgr.AnalysisKind { return nil }

var storeOps = map[ir.Opcode]ir.Opcode{
	ir.OpMStore: ir.OpMLoad,
	ir.OpSStore: ir.OpSLoad,
	ir.OpTStore: ir.OpTLoad,
}

func (DeadStoreElimination) RunFunction(fn *ir.Function, a *passmgr.Analyses) (bool, error) {
	changed := false
	for _, blk := range fn.Blocks {
		// pending[addrKey] = index of the last store to that address not
		// yet known to be read or aliased away, scoped to this block: a
		// conservative, intra-block-only analysis (no PRE across blocks).
		pending := make(map[ir.Opcode]map[string]int)
		var toRemove map[int]bool

		for idx, inst := range blk.Instructions {
			if loadOp, isStore := reverseLoad(inst.Op); isStore {
				addrKey := inst.Operands[0].String()
				if m, ok := pending[loadOp]; ok {
					if prevIdx, ok := m[addrKey]; ok {
						if toRemove == nil {
							toRemove = make(map[int]bool)
						}
						toRemove[prevIdx] = true
						changed = true
					}
				} else {
					pending[loadOp] = make(map[string]int)
				}
				pending[loadOp][addrKey] = idx
				continue
			}
			if isLoadOp(inst.Op) {
				// any load clears pending stores to the same address (it
				// proves that value is observed, so the store survives).
				if m, ok := pending[inst.Op]; ok {
					addrKey := inst.Operands[0].String()
					delete(m, addrKey)
				}
				continue
			}
			if ir.OpSignatures[inst.Op].SideEffect {
				// conservative: any other side-effectful instruction
				// (calls, logs, mcopy, unknown-target writes) could alias
				// any pending store; drop all pending state.
				pending = make(map[ir.Opcode]map[string]int)
			}
		}

		if len(toRemove) == 0 {
			continue
		}
		out := blk.Instructions[:0]
		for idx, inst := range blk.Instructions {
			if toRemove[idx] {
				continue
			}
			out = append(out, inst)
		}
		blk.Instructions = out
	}
	return changed, nil
}

func reverseLoad(op ir.Opcode) (ir.Opcode, bool) {
	loadOp, ok := storeOps[op]
	return loadOp, ok
}

func isLoadOp(op ir.Opcode) bool {
	return op == ir.OpMLoad || op == ir.OpSLoad || op == ir.OpTLoad
}
